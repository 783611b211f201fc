package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/command"
	"github.com/remoteled/platform/internal/domain"
	"github.com/remoteled/platform/internal/events"
	"golang.org/x/sync/errgroup"
)

// ActivationService is the best-effort LED surface. Wireless failures are
// logged and reported as false, never returned. Background work (holds and
// reactions to order events) runs in a group drained by Shutdown.
type ActivationService struct {
	link      LEDLink
	publisher EventPublisher
	clock     clock.Clock
	logger    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  errgroup.Group

	// mu orders task registration against Shutdown so Wait never races Go.
	mu     sync.Mutex
	closed bool
}

func NewActivationService(link LEDLink, publisher EventPublisher, clk clock.Clock, logger *log.Logger) *ActivationService {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ActivationService{
		link:      link,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Activate lights color for d on one held session. It reports whether the
// light came on; the end of the hold is watched in the background.
func (s *ActivationService) Activate(ctx context.Context, deviceID string, color command.Color, d time.Duration) bool {
	if s.isClosed() {
		return false
	}
	// The hold outlives the request, so it runs on the service context.
	done, err := s.link.Activate(s.ctx, color, d)
	if err != nil {
		s.fail(ctx, deviceID, "activate", err)
		return false
	}
	watched := s.goTask(func() {
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			s.fail(s.ctx, deviceID, "hold", err)
		}
	})
	if !watched {
		// Shutdown won the race; the cancelled hold turns the light off.
		s.logger.Printf("WARN: led activate device_id=%s cancelled by shutdown", deviceID)
		return false
	}
	s.logger.Printf("led activate device_id=%s color=%s duration=%s", deviceID, color, d)
	return true
}

// IndicateProcessing blinks color with the default cadence.
func (s *ActivationService) IndicateProcessing(ctx context.Context, deviceID string, color command.Color) bool {
	cmd := command.IndicateProcessing(color, command.DefaultBlinkTimes, command.DefaultBlinkInterval)
	if err := s.link.Send(ctx, cmd); err != nil {
		s.fail(ctx, deviceID, "indicate", err)
		return false
	}
	return true
}

// Deactivate turns every light off.
func (s *ActivationService) Deactivate(ctx context.Context, deviceID string) bool {
	if err := s.link.Send(ctx, command.Deactivate()); err != nil {
		s.fail(ctx, deviceID, "deactivate", err)
		return false
	}
	return true
}

// HandleOrderEvent reacts to device-driven transitions. Payment outcomes
// (transitions out of CREATED) already drive the light synchronously.
func (s *ActivationService) HandleOrderEvent(_ context.Context, event domain.OrderEvent) {
	if event.From == domain.OrderStatusCreated {
		return
	}
	switch event.To {
	case domain.OrderStatusFailed:
		s.spawn(func(ctx context.Context) { s.IndicateProcessing(ctx, event.DeviceID, command.Red) })
	case domain.OrderStatusDone:
		s.spawn(func(ctx context.Context) { s.Deactivate(ctx, event.DeviceID) })
	}
}

func (s *ActivationService) spawn(fn func(ctx context.Context)) {
	s.goTask(func() { fn(s.ctx) })
}

// goTask registers fn with the background group unless Shutdown has begun.
func (s *ActivationService) goTask(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.tasks.Go(func() error {
		fn()
		return nil
	})
	return true
}

func (s *ActivationService) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *ActivationService) fail(ctx context.Context, deviceID, action string, err error) {
	s.logger.Printf("WARN: led %s device_id=%s err=%v", action, deviceID, err)
	if s.publisher == nil {
		return
	}
	f := events.ActivationFailure{
		DeviceID: deviceID,
		Action:   action,
		Reason:   err.Error(),
		At:       s.clock.Now(),
	}
	if perr := s.publisher.PublishActivationFailure(context.WithoutCancel(ctx), f); perr != nil {
		s.logger.Printf("WARN: publish activation failure device_id=%s err=%v", deviceID, perr)
	}
}

// Shutdown cancels running holds (which turn their light off) and waits for
// background work until ctx expires.
func (s *ActivationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = s.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
