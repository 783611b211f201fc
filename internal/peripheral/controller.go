// Package peripheral is the embedded side of the wireless link: it decodes
// incoming frames and drives the LED engine.
package peripheral

import (
	"errors"
	"log"
	"time"

	"github.com/remoteled/platform/internal/command"
	"github.com/remoteled/platform/internal/led"
)

// ConnectedMessage is shown on the display when a phone acknowledges the link.
const ConnectedMessage = "CONNECTED!"

// Actuator is the subset of the LED engine the controller drives.
type Actuator interface {
	SetColorExclusive(color command.Color) error
	Blink(color command.Color, times int, interval time.Duration) error
	TurnOffAll() error
	State() led.State
}

// Display shows a message next to the machine (the QR page).
type Display interface {
	Publish(message string) error
}

type Controller struct {
	engine  Actuator
	display Display
	key     string
	logger  *log.Logger
}

func NewController(engine Actuator, display Display, key string, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{engine: engine, display: display, key: key, logger: logger}
}

// HandleWrite applies one frame. Frames that fail to decode are logged and
// dropped with no state change; the returned error is informational.
func (c *Controller) HandleWrite(data []byte) error {
	cmd, err := command.Decode(data, c.key)
	if err != nil {
		if errors.Is(err, command.ErrUnauthorizedFrame) {
			c.logger.Printf("WARN: dropped frame reason=unauthorized")
		} else {
			c.logger.Printf("WARN: dropped frame err=%v", err)
		}
		return err
	}

	switch cmd := cmd.(type) {
	case command.On:
		err = c.engine.SetColorExclusive(cmd.Color)
	case command.Blink:
		err = c.engine.Blink(cmd.Color, cmd.Times, cmd.Interval)
	case command.Off:
		err = c.engine.TurnOffAll()
	case command.Connect:
		c.logger.Printf("peer acknowledged link")
		if c.display != nil {
			err = c.display.Publish(ConnectedMessage)
		}
	}
	if err != nil {
		c.logger.Printf("WARN: command=%s err=%v", cmd.Kind(), err)
		return err
	}
	c.logger.Printf("command=%s state=%s", cmd.Kind(), c.engine.State())
	return nil
}

// HandleRead returns the current LED state as characteristic bytes.
func (c *Controller) HandleRead() []byte {
	return []byte(c.engine.State())
}
