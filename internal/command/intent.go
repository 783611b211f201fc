package command

import "time"

const (
	DefaultBlinkTimes    = 5
	DefaultBlinkInterval = 500 * time.Millisecond
)

// Activate lights color now and turns it off after Duration, on one held session.
type Activate struct {
	Color    Color
	Duration time.Duration
}

// Frames returns the commands sent at the start and end of the hold.
func (a Activate) Frames() (start, end Command) {
	return On{Color: a.Color}, Off{Color: a.Color}
}

// IndicateProcessing blinks color without holding a session.
func IndicateProcessing(color Color, times int, interval time.Duration) Command {
	if times <= 0 {
		times = DefaultBlinkTimes
	}
	if interval <= 0 {
		interval = DefaultBlinkInterval
	}
	return Blink{Color: color, Times: times, Interval: interval}
}

// Deactivate turns every color off.
func Deactivate() Command {
	return Off{}
}

// ConnectAck asks the controller to acknowledge the link.
func ConnectAck() Command {
	return Connect{}
}
