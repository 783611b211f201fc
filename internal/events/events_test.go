package events

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/remoteled/platform/internal/domain"
)

type recordingPublisher struct {
	orders   []domain.OrderEvent
	failures []ActivationFailure
	err      error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, e domain.OrderEvent) error {
	p.orders = append(p.orders, e)
	return p.err
}

func (p *recordingPublisher) PublishActivationFailure(_ context.Context, f ActivationFailure) error {
	p.failures = append(p.failures, f)
	return p.err
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	bus := NewBus(log.New(io.Discard, "", 0))
	var got []string
	bus.Subscribe(func(_ context.Context, e domain.OrderEvent) { got = append(got, "first:"+string(e.To)) })
	bus.Subscribe(func(_ context.Context, e domain.OrderEvent) { got = append(got, "second:"+string(e.To)) })

	event := domain.OrderEvent{OrderID: "o1", DeviceID: "d1", From: domain.OrderStatusCreated, To: domain.OrderStatusPaid, At: time.Now()}
	if err := bus.PublishOrderEvent(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 2 || got[0] != "first:PAID" || got[1] != "second:PAID" {
		t.Fatalf("unexpected delivery %v", got)
	}
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	t.Parallel()

	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("nats down")}
	multi := Multi{ok, failing}

	err := multi.PublishActivationFailure(context.Background(), ActivationFailure{DeviceID: "d1", Action: "activate"})
	if err == nil || err.Error() != "nats down" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.failures) != 1 || len(failing.failures) != 1 {
		t.Fatalf("expected both publishers called")
	}

	if err := (Multi{ok}).PublishOrderEvent(context.Background(), domain.OrderEvent{OrderID: "o1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestDeviceFromSubject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		subject string
		want    string
		ok      bool
	}{
		{subject: "devices.abc.telemetry", want: "abc", ok: true},
		{subject: "devices..telemetry", ok: false},
		{subject: "devices.abc.activation", ok: false},
		{subject: "orders.abc.telemetry", ok: false},
		{subject: "devices.a.b.telemetry", ok: false},
	}
	for _, tc := range cases {
		got, ok := deviceFromSubject(tc.subject)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("subject %s: expected (%q,%v), got (%q,%v)", tc.subject, tc.want, tc.ok, got, ok)
		}
	}
}
