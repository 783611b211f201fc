package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// TinyGoTransport scans and dials through the host Bluetooth stack.
type TinyGoTransport struct {
	adapter     *bluetooth.Adapter
	serviceUUID bluetooth.UUID
	charUUID    bluetooth.UUID

	mu    sync.Mutex
	seen  map[Address]bluetooth.Address
	conns map[string]*tinyGoConn
}

// NewTinyGoTransport enables the default adapter.
func NewTinyGoTransport(serviceUUID, charUUID string) (*TinyGoTransport, error) {
	svc, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse service uuid: %w", err)
	}
	char, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, fmt.Errorf("parse characteristic uuid: %w", err)
	}
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}
	t := &TinyGoTransport{
		adapter:     adapter,
		serviceUUID: svc,
		charUUID:    char,
		seen:        make(map[Address]bluetooth.Address),
		conns:       make(map[string]*tinyGoConn),
	}
	adapter.SetConnectHandler(t.onConnectChange)
	return t, nil
}

func (t *TinyGoTransport) onConnectChange(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	t.mu.Lock()
	conn := t.conns[device.Address.String()]
	t.mu.Unlock()
	if conn != nil {
		conn.markDisconnected()
	}
}

func (t *TinyGoTransport) Scan(ctx context.Context, timeout time.Duration) ([]Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		order []Address
		found = make(map[Address]Advertisement)
	)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- t.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			addr := Address(result.Address.String())
			ad := Advertisement{
				Address:           addr,
				LocalName:         result.LocalName(),
				AdvertisesService: result.HasServiceUUID(t.serviceUUID),
			}
			mu.Lock()
			if _, ok := found[addr]; !ok {
				order = append(order, addr)
			}
			found[addr] = ad
			mu.Unlock()

			t.mu.Lock()
			t.seen[addr] = result.Address
			t.mu.Unlock()

			if ad.AdvertisesService {
				_ = t.adapter.StopScan()
			}
		})
	}()

	select {
	case err := <-scanErr:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		_ = t.adapter.StopScan()
		if err := <-scanErr; err != nil {
			return nil, err
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]Advertisement, 0, len(order))
	for _, addr := range order {
		out = append(out, found[addr])
	}
	return out, nil
}

func (t *TinyGoTransport) Dial(ctx context.Context, addr Address, timeout time.Duration) (Conn, error) {
	t.mu.Lock()
	btAddr, ok := t.seen[addr]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("address %s not seen in a scan", addr)
	}

	done := make(chan dialResult, 1)
	go func() {
		device, err := t.adapter.Connect(btAddr, bluetooth.ConnectionParams{
			ConnectionTimeout: bluetooth.NewDuration(timeout),
		})
		done <- dialResult{device: device, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		conn := &tinyGoConn{
			transport:    t,
			device:       res.device,
			key:          btAddr.String(),
			disconnected: make(chan struct{}),
		}
		t.mu.Lock()
		t.conns[conn.key] = conn
		t.mu.Unlock()
		return conn, nil
	case <-timer.C:
		go disconnectLate(done)
		return nil, ErrConnectTimeout
	case <-ctx.Done():
		go disconnectLate(done)
		return nil, ctx.Err()
	}
}

type dialResult struct {
	device bluetooth.Device
	err    error
}

// disconnectLate drops a connection that completed after its caller gave up.
func disconnectLate(done <-chan dialResult) {
	if res := <-done; res.err == nil {
		_ = res.device.Disconnect()
	}
}

type tinyGoConn struct {
	transport *TinyGoTransport
	device    bluetooth.Device
	key       string

	charOnce sync.Once
	char     bluetooth.DeviceCharacteristic
	charErr  error

	closeOnce    sync.Once
	discOnce     sync.Once
	disconnected chan struct{}
}

func (c *tinyGoConn) markDisconnected() {
	c.discOnce.Do(func() { close(c.disconnected) })
}

func (c *tinyGoConn) HasService(context.Context) (bool, error) {
	services, err := c.device.DiscoverServices([]bluetooth.UUID{c.transport.serviceUUID})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return false, nil
		}
		return false, err
	}
	return len(services) > 0, nil
}

func (c *tinyGoConn) characteristic() (bluetooth.DeviceCharacteristic, error) {
	c.charOnce.Do(func() {
		services, err := c.device.DiscoverServices([]bluetooth.UUID{c.transport.serviceUUID})
		if err != nil || len(services) == 0 {
			c.charErr = fmt.Errorf("discover service: %v", err)
			return
		}
		chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{c.transport.charUUID})
		if err != nil || len(chars) == 0 {
			c.charErr = fmt.Errorf("discover characteristic: %v", err)
			return
		}
		c.char = chars[0]
	})
	return c.char, c.charErr
}

func (c *tinyGoConn) Write(_ context.Context, frame []byte) error {
	select {
	case <-c.disconnected:
		return ErrSessionLost
	default:
	}
	char, err := c.characteristic()
	if err != nil {
		return err
	}
	_, err = char.WriteWithoutResponse(frame)
	return err
}

func (c *tinyGoConn) Disconnected() <-chan struct{} {
	return c.disconnected
}

func (c *tinyGoConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.transport.mu.Lock()
		if c.transport.conns[c.key] == c {
			delete(c.transport.conns, c.key)
		}
		c.transport.mu.Unlock()
		err = c.device.Disconnect()
	})
	return err
}
