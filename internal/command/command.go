// Package command defines the frames exchanged between the server and an
// embedded LED controller over the wireless link.
package command

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedFrame    = errors.New("malformed command frame")
	ErrUnauthorizedFrame = errors.New("unauthorized command frame")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrMissingField      = errors.New("missing command field")
	ErrUnknownColor      = errors.New("unknown color")
)

type Color string

const (
	Green  Color = "green"
	Yellow Color = "yellow"
	Red    Color = "red"
)

// Colors lists every color an embedded controller can light.
var Colors = []Color{Green, Yellow, Red}

func (c Color) Valid() bool {
	switch c {
	case Green, Yellow, Red:
		return true
	}
	return false
}

// ParseColor normalizes case and rejects colors outside the palette.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
	return c, nil
}

// ColorForStatus maps an outcome label to the color that signals it.
func ColorForStatus(status string) (Color, bool) {
	switch strings.ToLower(status) {
	case "success":
		return Green, true
	case "fail", "failed":
		return Red, true
	case "processing":
		return Yellow, true
	}
	return "", false
}

// Kind is the wire name of a command.
type Kind string

const (
	KindOn      Kind = "ON"
	KindOff     Kind = "OFF"
	KindBlink   Kind = "BLINK"
	KindConnect Kind = "CONNECT"
)

// Command is one of On, Off, Blink or Connect.
type Command interface {
	Kind() Kind
	frame() Frame
}

type On struct {
	Color Color
}

// Off turns a single color off, or every color when Color is empty.
type Off struct {
	Color Color
}

type Blink struct {
	Color    Color
	Times    int
	Interval time.Duration
}

type Connect struct{}

func (On) Kind() Kind      { return KindOn }
func (Off) Kind() Kind     { return KindOff }
func (Blink) Kind() Kind   { return KindBlink }
func (Connect) Kind() Kind { return KindConnect }

func (c On) frame() Frame  { return Frame{Command: KindOn, Color: c.Color} }
func (c Off) frame() Frame { return Frame{Command: KindOff, Color: c.Color} }
func (c Blink) frame() Frame {
	return Frame{Command: KindBlink, Color: c.Color, Times: c.Times, Interval: c.Interval.Seconds()}
}
func (Connect) frame() Frame { return Frame{Command: KindConnect} }

// Frame is the JSON wire form of a command. Interval is in seconds.
type Frame struct {
	Command  Kind    `json:"command"`
	Color    Color   `json:"color,omitempty"`
	Times    int     `json:"times,omitempty"`
	Interval float64 `json:"interval,omitempty"`
	BLEKey   string  `json:"bleKey"`
}

// Encode renders cmd as a wire frame carrying key.
func Encode(cmd Command, key string) ([]byte, error) {
	if cmd == nil {
		return nil, ErrUnknownCommand
	}
	f := cmd.frame()
	f.BLEKey = key
	return json.Marshal(f)
}

// Decode parses a wire frame. The shared key is checked before any other
// field is interpreted.
func Decode(data []byte, key string) (Command, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if subtle.ConstantTimeCompare([]byte(f.BLEKey), []byte(key)) != 1 {
		return nil, ErrUnauthorizedFrame
	}

	switch Kind(strings.ToUpper(string(f.Command))) {
	case KindOn:
		c, err := requireColor(f.Color)
		if err != nil {
			return nil, err
		}
		return On{Color: c}, nil
	case KindOff:
		if f.Color == "" {
			return Off{}, nil
		}
		c, err := requireColor(f.Color)
		if err != nil {
			return nil, err
		}
		return Off{Color: c}, nil
	case KindBlink:
		c, err := requireColor(f.Color)
		if err != nil {
			return nil, err
		}
		if f.Times <= 0 {
			return nil, fmt.Errorf("%w: times", ErrMissingField)
		}
		if f.Interval <= 0 {
			return nil, fmt.Errorf("%w: interval", ErrMissingField)
		}
		return Blink{
			Color:    c,
			Times:    f.Times,
			Interval: time.Duration(f.Interval * float64(time.Second)),
		}, nil
	case KindConnect:
		return Connect{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, f.Command)
}

func requireColor(c Color) (Color, error) {
	if c == "" {
		return "", fmt.Errorf("%w: color", ErrMissingField)
	}
	return ParseColor(string(c))
}
