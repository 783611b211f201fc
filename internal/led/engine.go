// Package led owns the indicator outputs of an embedded controller.
package led

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/remoteled/platform/internal/command"
)

var ErrUnknownColor = errors.New("unknown led color")

// joinTimeout bounds how long a mutator waits for a cancelled blink to exit.
const joinTimeout = time.Second

// Driver drives physical (or simulated) outputs, one per color.
type Driver interface {
	Set(color command.Color, on bool) error
	Close() error
}

// State is "off", "<color>_on" or "<color>_blinking".
type State string

const StateOff State = "off"

func OnState(c command.Color) State       { return State(string(c) + "_on") }
func BlinkingState(c command.Color) State { return State(string(c) + "_blinking") }

// Engine serializes every state change on the output set. At most one color is
// ever high: each mutator cancels and joins any running blink, then forces the
// other colors low before asserting its own.
type Engine struct {
	mu     sync.Mutex
	driver Driver
	logger *log.Logger
	state  State
	blink  *blinkWorker
}

type blinkWorker struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (w *blinkWorker) cancel() {
	w.once.Do(func() { close(w.stop) })
}

func NewEngine(driver Driver, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{driver: driver, logger: logger, state: StateOff}
}

// State returns the current LED state string.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetLED drives a single color. Turning a color on turns every other color off first.
func (e *Engine) SetLED(color command.Color, on bool) error {
	if !color.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	if on {
		return e.SetColorExclusive(color)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	stopped := e.stopBlinkLocked()
	if err := e.driver.Set(color, false); err != nil {
		return fmt.Errorf("set %s off: %w", color, err)
	}
	if stopped || e.state == OnState(color) || e.state == BlinkingState(color) {
		e.state = StateOff
	}
	return nil
}

// SetColorExclusive lights color and guarantees every other color is off.
func (e *Engine) SetColorExclusive(color command.Color) error {
	if !color.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBlinkLocked()
	if err := e.allOffLocked(); err != nil {
		return err
	}
	if err := e.driver.Set(color, true); err != nil {
		return fmt.Errorf("set %s on: %w", color, err)
	}
	e.state = OnState(color)
	e.logger.Printf("led state=%s", e.state)
	return nil
}

// Blink starts a background worker toggling color times times and returns immediately.
// The worker always leaves the pin low when it exits.
func (e *Engine) Blink(color command.Color, times int, interval time.Duration) error {
	if !color.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	if times <= 0 || interval <= 0 {
		return fmt.Errorf("blink %s: times and interval must be positive", color)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBlinkLocked()
	if err := e.allOffLocked(); err != nil {
		return err
	}

	w := &blinkWorker{stop: make(chan struct{}), done: make(chan struct{})}
	e.blink = w
	e.state = BlinkingState(color)
	e.logger.Printf("led state=%s times=%d interval=%s", e.state, times, interval)
	go e.runBlink(w, color, times, interval)
	return nil
}

// TurnOffAll cancels any blink and drives every output low. Safe to call repeatedly.
func (e *Engine) TurnOffAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBlinkLocked()
	return e.allOffLocked()
}

// Close turns everything off and releases the driver.
func (e *Engine) Close() error {
	offErr := e.TurnOffAll()
	return errors.Join(offErr, e.driver.Close())
}

func (e *Engine) allOffLocked() error {
	var errs []error
	for _, c := range command.Colors {
		if err := e.driver.Set(c, false); err != nil {
			errs = append(errs, fmt.Errorf("set %s off: %w", c, err))
		}
	}
	e.state = StateOff
	return errors.Join(errs...)
}

// stopBlinkLocked signals the running worker and waits for it to exit. It
// reports whether a worker was stopped; its pin is low afterwards.
func (e *Engine) stopBlinkLocked() bool {
	w := e.blink
	if w == nil {
		return false
	}
	e.blink = nil
	w.cancel()

	t := time.NewTimer(joinTimeout)
	defer t.Stop()
	select {
	case <-w.done:
	case <-t.C:
		e.logger.Printf("WARN: blink worker did not stop within %s", joinTimeout)
	}
	return true
}

func (e *Engine) runBlink(w *blinkWorker, color command.Color, times int, interval time.Duration) {
	defer func() {
		if err := e.driver.Set(color, false); err != nil {
			e.logger.Printf("WARN: blink cleanup color=%s err=%v", color, err)
		}
		close(w.done)

		e.mu.Lock()
		if e.blink == w {
			e.blink = nil
			e.state = StateOff
		}
		e.mu.Unlock()
	}()

	for i := 0; i < times; i++ {
		if err := e.driver.Set(color, true); err != nil {
			e.logger.Printf("WARN: blink color=%s err=%v", color, err)
			return
		}
		if !sleepOrStop(w.stop, interval) {
			return
		}
		if err := e.driver.Set(color, false); err != nil {
			e.logger.Printf("WARN: blink color=%s err=%v", color, err)
			return
		}
		if !sleepOrStop(w.stop, interval) {
			return
		}
	}
}

// sleepOrStop waits for d and reports false if stop fired first.
func sleepOrStop(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}
