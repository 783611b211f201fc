package command

import (
	"errors"
	"testing"
	"time"
)

const testKey = "9F64"

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cmd  Command
	}{
		{name: "on", cmd: On{Color: Green}},
		{name: "off all", cmd: Off{}},
		{name: "off one", cmd: Off{Color: Red}},
		{name: "blink", cmd: Blink{Color: Yellow, Times: 5, Interval: 500 * time.Millisecond}},
		{name: "connect", cmd: Connect{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.cmd, testKey)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := Decode(data, testKey)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.cmd {
				t.Fatalf("expected %#v, got %#v", tc.cmd, got)
			}
		})
	}
}

func TestDecode_WireFrames(t *testing.T) {
	t.Parallel()

	got, err := Decode([]byte(`{"command":"BLINK","color":"red","times":3,"interval":0.25,"bleKey":"9F64"}`), testKey)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Blink{Color: Red, Times: 3, Interval: 250 * time.Millisecond}
	if got != want {
		t.Fatalf("expected %#v, got %#v", want, got)
	}

	got, err = Decode([]byte(`{"command":"on","color":"GREEN","bleKey":"9F64"}`), testKey)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != (On{Color: Green}) {
		t.Fatalf("expected ON green, got %#v", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
		want error
	}{
		{name: "not json", data: `{"command":`, want: ErrMalformedFrame},
		{name: "wrong key", data: `{"command":"ON","color":"green","bleKey":"0000"}`, want: ErrUnauthorizedFrame},
		{name: "missing key", data: `{"command":"ON","color":"green"}`, want: ErrUnauthorizedFrame},
		{name: "wrong key checked before command", data: `{"command":"DANCE","bleKey":"nope"}`, want: ErrUnauthorizedFrame},
		{name: "wrong key checked before color", data: `{"command":"ON","color":"purple","bleKey":"nope"}`, want: ErrUnauthorizedFrame},
		{name: "unknown command", data: `{"command":"DANCE","bleKey":"9F64"}`, want: ErrUnknownCommand},
		{name: "on without color", data: `{"command":"ON","bleKey":"9F64"}`, want: ErrMissingField},
		{name: "blink without times", data: `{"command":"BLINK","color":"red","interval":0.5,"bleKey":"9F64"}`, want: ErrMissingField},
		{name: "blink without interval", data: `{"command":"BLINK","color":"red","times":2,"bleKey":"9F64"}`, want: ErrMissingField},
		{name: "unknown color", data: `{"command":"ON","color":"purple","bleKey":"9F64"}`, want: ErrUnknownColor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data), testKey)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestColorForStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]Color{
		"success":    Green,
		"failed":     Red,
		"FAIL":       Red,
		"processing": Yellow,
	}
	for status, want := range cases {
		got, ok := ColorForStatus(status)
		if !ok || got != want {
			t.Fatalf("status %q: expected %s, got %s (ok=%v)", status, want, got, ok)
		}
	}
	if _, ok := ColorForStatus("unknown"); ok {
		t.Fatalf("expected unknown status to have no color")
	}
}

func TestIntents(t *testing.T) {
	t.Parallel()

	start, end := Activate{Color: Green, Duration: time.Minute}.Frames()
	if start != (On{Color: Green}) || end != (Off{Color: Green}) {
		t.Fatalf("unexpected activation frames %#v %#v", start, end)
	}

	blink := IndicateProcessing(Yellow, 0, 0)
	want := Blink{Color: Yellow, Times: DefaultBlinkTimes, Interval: DefaultBlinkInterval}
	if blink != want {
		t.Fatalf("expected defaults %#v, got %#v", want, blink)
	}
	if Deactivate() != (Off{}) {
		t.Fatalf("expected deactivate to be OFF all")
	}
	if ConnectAck().Kind() != KindConnect {
		t.Fatalf("expected CONNECT")
	}
}
