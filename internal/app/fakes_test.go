package app

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"
	"log"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/remoteled/platform/internal/authz"
	"github.com/remoteled/platform/internal/command"
	"github.com/remoteled/platform/internal/domain"
	"github.com/remoteled/platform/internal/events"
)

// fakeStore backs every repository interface in memory. WithTx restores the
// previous contents when fn fails, like a rolled back transaction.
type fakeStore struct {
	mu       sync.Mutex
	devices  map[string]domain.Device
	services map[string]domain.Service
	orders   map[string]domain.Order
	auths    map[string]domain.Authorization
	logs     []domain.DeviceLog

	createAuthErr error
	updateErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices:  make(map[string]domain.Device),
		services: make(map[string]domain.Service),
		orders:   make(map[string]domain.Order),
		auths:    make(map[string]domain.Authorization),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	orders := make(map[string]domain.Order, len(f.orders))
	for k, v := range f.orders {
		orders[k] = v
	}
	auths := make(map[string]domain.Authorization, len(f.auths))
	for k, v := range f.auths {
		auths[k] = v
	}
	logs := append([]domain.DeviceLog(nil), f.logs...)
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.orders, f.auths, f.logs = orders, auths, logs
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) CreateDevice(_ context.Context, d domain.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices[d.ID] = d
	return nil
}

func (f *fakeStore) ListDevices(context.Context) ([]domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) GetDevice(_ context.Context, deviceID string) (domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[deviceID]
	if !ok {
		return domain.Device{}, domain.ErrDeviceNotFound
	}
	return d, nil
}

func (f *fakeStore) CreateService(_ context.Context, s domain.Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[s.DeviceID]; !ok {
		return domain.ErrDeviceNotFound
	}
	f.services[s.ID] = s
	return nil
}

func (f *fakeStore) ListServicesByDevice(_ context.Context, deviceID string) ([]domain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Service
	for _, s := range f.services {
		if s.DeviceID == deviceID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetService(_ context.Context, deviceID, serviceID string) (domain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[serviceID]
	if !ok || s.DeviceID != deviceID {
		return domain.Service{}, domain.ErrServiceNotFound
	}
	return s, nil
}

func (f *fakeStore) CreateAuthorization(_ context.Context, auth domain.Authorization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createAuthErr != nil {
		return f.createAuthErr
	}
	if _, ok := f.auths[auth.OrderID]; ok {
		return domain.ErrAlreadyIssued
	}
	f.auths[auth.OrderID] = auth
	return nil
}

func (f *fakeStore) GetAuthorizationByOrder(_ context.Context, orderID string) (*domain.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auths[orderID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeStore) GetAuthorization(_ context.Context, id string) (*domain.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.auths {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateLog(_ context.Context, entry domain.DeviceLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeStore) ListLogs(_ context.Context, deviceID string, limit int) ([]domain.DeviceLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DeviceLog
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.logs[i].DeviceID == deviceID {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

func (f *fakeStore) order(id string) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

// seed adds a device with one service of the given type and a CREATED order for it.
func (f *fakeStore) seed(serviceType domain.ServiceType, status domain.OrderStatus, authorizedSeconds int) domain.Order {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	f.devices["dev-1"] = domain.Device{ID: "dev-1", Name: "Washer 1", Status: domain.DeviceStatusActive}
	f.services["svc-1"] = domain.Service{ID: "svc-1", DeviceID: "dev-1", Name: "Cycle", Type: serviceType, Active: true}
	order := domain.Order{
		ID:                "order-1",
		DeviceID:          "dev-1",
		ServiceID:         "svc-1",
		ServiceType:       serviceType,
		AmountCents:       100,
		AuthorizedSeconds: authorizedSeconds,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	f.orders[order.ID] = order
	return order
}

type recordingPublisher struct {
	mu       sync.Mutex
	orders   []domain.OrderEvent
	failures []events.ActivationFailure
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, e domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, e)
	return nil
}

func (p *recordingPublisher) PublishActivationFailure(_ context.Context, f events.ActivationFailure) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, f)
	return nil
}

func (p *recordingPublisher) orderEvents() []domain.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderEvent(nil), p.orders...)
}

func (p *recordingPublisher) activationFailures() []events.ActivationFailure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ActivationFailure(nil), p.failures...)
}

type activateCall struct {
	color    command.Color
	duration time.Duration
}

// fakeLink stands in for the wireless session manager.
type fakeLink struct {
	mu        sync.Mutex
	sent      []command.Command
	activated []activateCall
	sendErr   error
	activErr  error
	hold      chan error
}

func (l *fakeLink) Send(_ context.Context, cmd command.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, cmd)
	return nil
}

func (l *fakeLink) Activate(ctx context.Context, color command.Color, d time.Duration) (<-chan error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.activErr != nil {
		return nil, l.activErr
	}
	l.activated = append(l.activated, activateCall{color: color, duration: d})
	out := make(chan error, 1)
	hold := l.hold
	go func() {
		defer close(out)
		if hold == nil {
			out <- nil
			return
		}
		select {
		case err := <-hold:
			out <- err
		case <-ctx.Done():
			out <- ctx.Err()
		}
	}()
	return out, nil
}

func (l *fakeLink) sentCommands() []command.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]command.Command(nil), l.sent...)
}

func (l *fakeLink) activations() []activateCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]activateCall(nil), l.activated...)
}

type stubActivator struct {
	calls  []activateCall
	result bool
}

func (a *stubActivator) Activate(_ context.Context, _ string, color command.Color, d time.Duration) bool {
	a.calls = append(a.calls, activateCall{color: color, duration: d})
	return a.result
}

var errRadio = errors.New("radio off")

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestSigner(t *testing.T) (*authz.Signer, *authz.Verifier) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := authz.NewSigner(key)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := authz.NewVerifier(signer.PublicKey())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return signer, verifier
}
