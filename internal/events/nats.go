package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/remoteled/platform/internal/domain"
)

// Subjects. Device ids are single tokens.
const (
	orderSubjectFmt      = "orders.%s.status"
	activationSubjectFmt = "devices.%s.activation"
	TelemetrySubject     = "devices.*.telemetry"
)

// Connect dials NATS with reconnect-forever settings and logs link changes.
func Connect(url, name string, logger *log.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = log.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.PingInterval(5*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Printf("WARN: nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Printf("nats reconnected url=%s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON events on core NATS subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	return p.publish(fmt.Sprintf(orderSubjectFmt, event.DeviceID), event)
}

func (p *NATSPublisher) PublishActivationFailure(_ context.Context, f ActivationFailure) error {
	return p.publish(fmt.Sprintf(activationSubjectFmt, f.DeviceID), f)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// TelemetryMessage is the body a controller publishes on devices.<id>.telemetry.
type TelemetryMessage struct {
	Event       string `json:"event"`
	OrderID     string `json:"order_id,omitempty"`
	Details     string `json:"details,omitempty"`
	PayloadHash string `json:"payload_hash,omitempty"`
}

type TelemetryHandler func(ctx context.Context, deviceID string, msg TelemetryMessage) error

// SubscribeTelemetry routes device telemetry messages to h until ctx is done.
// Each message is handled with a bounded context of its own.
func SubscribeTelemetry(ctx context.Context, nc *nats.Conn, h TelemetryHandler, logger *log.Logger) (*nats.Subscription, error) {
	if logger == nil {
		logger = log.Default()
	}
	sub, err := nc.Subscribe(TelemetrySubject, func(m *nats.Msg) {
		deviceID, ok := deviceFromSubject(m.Subject)
		if !ok {
			logger.Printf("WARN: telemetry subject=%s unparseable", m.Subject)
			return
		}
		var msg TelemetryMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			logger.Printf("WARN: telemetry device_id=%s malformed: %v", deviceID, err)
			return
		}
		hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := h(hctx, deviceID, msg); err != nil {
			logger.Printf("WARN: telemetry device_id=%s event=%s err=%v", deviceID, msg.Event, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", TelemetrySubject, err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return sub, nil
}

func deviceFromSubject(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != "devices" || parts[2] != "telemetry" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
