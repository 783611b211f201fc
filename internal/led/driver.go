package led

import (
	"fmt"
	"log"
	"sync"

	"github.com/remoteled/platform/internal/command"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// DefaultPins maps each color to its BCM pin name on the controller board.
var DefaultPins = map[command.Color]string{
	command.Green:  "GPIO17",
	command.Yellow: "GPIO19",
	command.Red:    "GPIO27",
}

// GPIODriver drives real output pins through periph.io.
type GPIODriver struct {
	pins map[command.Color]gpio.PinIO
}

// NewGPIODriver initializes the host and claims one output pin per color, driven low.
func NewGPIODriver(pins map[command.Color]string) (*GPIODriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	d := &GPIODriver{pins: make(map[command.Color]gpio.PinIO, len(pins))}
	for color, name := range pins {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %s for %s not found", name, color)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("configure %s: %w", name, err)
		}
		d.pins[color] = p
	}
	return d, nil
}

func (d *GPIODriver) Set(color command.Color, on bool) error {
	p, ok := d.pins[color]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	return p.Out(level)
}

// Close drives every pin low.
func (d *GPIODriver) Close() error {
	for _, p := range d.pins {
		if err := p.Out(gpio.Low); err != nil {
			return err
		}
	}
	return nil
}

// SimulatedDriver stands in for GPIO when no hardware is present.
// It records levels and logs each change.
type SimulatedDriver struct {
	mu     sync.Mutex
	levels map[command.Color]bool
	logger *log.Logger
}

func NewSimulatedDriver(logger *log.Logger) *SimulatedDriver {
	if logger == nil {
		logger = log.Default()
	}
	return &SimulatedDriver{levels: make(map[command.Color]bool), logger: logger}
}

func (d *SimulatedDriver) Set(color command.Color, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.levels[color] != on {
		d.logger.Printf("simulated led color=%s on=%t", color, on)
	}
	d.levels[color] = on
	return nil
}

func (d *SimulatedDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := range d.levels {
		d.levels[c] = false
	}
	return nil
}

// Levels returns a snapshot of output levels.
func (d *SimulatedDriver) Levels() map[command.Color]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[command.Color]bool, len(d.levels))
	for c, on := range d.levels {
		out[c] = on
	}
	return out
}
