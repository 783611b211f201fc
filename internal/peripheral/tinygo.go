package peripheral

import (
	"context"
	"fmt"
	"log"
	"time"

	"tinygo.org/x/bluetooth"
)

// DefaultLocalName is the advertised name phones look for.
const DefaultLocalName = "Remote LED"

const stateRefreshInterval = 500 * time.Millisecond

// TinyGoPeripheral advertises the controller service and routes characteristic
// writes to a Controller.
type TinyGoPeripheral struct {
	adapter   *bluetooth.Adapter
	ctrl      *Controller
	service   bluetooth.UUID
	char      bluetooth.UUID
	localName string
	logger    *log.Logger

	handle bluetooth.Characteristic
	adv    *bluetooth.Advertisement
}

func NewTinyGoPeripheral(ctrl *Controller, serviceUUID, charUUID, localName string, logger *log.Logger) (*TinyGoPeripheral, error) {
	if logger == nil {
		logger = log.Default()
	}
	svc, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse service uuid: %w", err)
	}
	char, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, fmt.Errorf("parse characteristic uuid: %w", err)
	}
	if localName == "" {
		localName = DefaultLocalName
	}
	return &TinyGoPeripheral{
		adapter:   bluetooth.DefaultAdapter,
		ctrl:      ctrl,
		service:   svc,
		char:      char,
		localName: localName,
		logger:    logger,
	}, nil
}

// Start enables the adapter, registers the service and begins advertising.
func (p *TinyGoPeripheral) Start() error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	p.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		p.logger.Printf("ble central addr=%s connected=%t", device.Address.String(), connected)
	})

	err := p.adapter.AddService(&bluetooth.Service{
		UUID: p.service,
		Characteristics: []bluetooth.CharacteristicConfig{{
			Handle: &p.handle,
			UUID:   p.char,
			Value:  p.ctrl.HandleRead(),
			Flags: bluetooth.CharacteristicReadPermission |
				bluetooth.CharacteristicWritePermission |
				bluetooth.CharacteristicWriteWithoutResponsePermission,
			WriteEvent: func(_ bluetooth.Connection, _ int, value []byte) {
				_ = p.ctrl.HandleWrite(append([]byte(nil), value...))
				p.refresh()
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("add service: %w", err)
	}

	p.adv = p.adapter.DefaultAdvertisement()
	if err := p.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.localName,
		ServiceUUIDs: []bluetooth.UUID{p.service},
	}); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := p.adv.Start(); err != nil {
		return fmt.Errorf("start advertisement: %w", err)
	}
	p.logger.Printf("advertising name=%q service=%s", p.localName, p.service.String())
	return nil
}

// MAC returns the adapter address used in the deep link.
func (p *TinyGoPeripheral) MAC() (string, error) {
	addr, err := p.adapter.Address()
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// Run keeps the readable value in step with the LED state (blinks end on their
// own) until ctx is cancelled, then stops advertising.
func (p *TinyGoPeripheral) Run(ctx context.Context) error {
	ticker := time.NewTicker(stateRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if p.adv != nil {
				if err := p.adv.Stop(); err != nil {
					p.logger.Printf("WARN: stop advertisement: %v", err)
				}
			}
			return nil
		case <-ticker.C:
			p.refresh()
		}
	}
}

func (p *TinyGoPeripheral) refresh() {
	if _, err := p.handle.Write(p.ctrl.HandleRead()); err != nil {
		p.logger.Printf("WARN: update characteristic: %v", err)
	}
}
