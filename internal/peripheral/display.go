package peripheral

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/remoteled/platform/internal/clock"
)

// LinkParams are the values a phone needs to reach this controller.
type LinkParams struct {
	APIBaseURL  string
	MachineID   string
	MAC         string
	ServiceUUID string
	CharUUID    string
	Key         string
}

// DeepLink builds the detail URL encoded into the machine's QR code.
func DeepLink(p LinkParams) string {
	return fmt.Sprintf("%s/detail?machineId=%s&mac=%s&service=%s&char=%s&key=%s",
		p.APIBaseURL,
		url.QueryEscape(p.MachineID),
		url.QueryEscape(p.MAC),
		url.QueryEscape(p.ServiceUUID),
		url.QueryEscape(p.CharUUID),
		url.QueryEscape(p.Key),
	)
}

// FileDisplay writes {"message", "timestamp"} JSON for the kiosk page to poll.
type FileDisplay struct {
	path  string
	clock clock.Clock
}

func NewFileDisplay(path string, clk clock.Clock) *FileDisplay {
	return &FileDisplay{path: path, clock: clk}
}

type displayMessage struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Publish replaces the file atomically so readers never see a partial write.
func (d *FileDisplay) Publish(message string) error {
	body, err := json.Marshal(displayMessage{Message: message, Timestamp: d.clock.Now().UnixMilli()})
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".qr_data-*.json")
	if err != nil {
		return fmt.Errorf("write display file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write display file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write display file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write display file: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write display file: %w", err)
	}
	return nil
}
