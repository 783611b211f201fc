package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

const DefaultQRDataFile = "/var/www/html/qr_data.json"

// Controller is the configuration of the embedded LED controller process.
type Controller struct {
	DeviceID       string
	MachineID      string
	APIBaseURL     string
	QRDataFile     string
	LocalName      string
	BLEServiceUUID string
	BLECharUUID    string
	BLEKey         string
	SimulateLEDs   bool
}

func LoadControllerFromEnv(logger *log.Logger) (Controller, error) {
	cfg := Controller{
		DeviceID:       strings.TrimSpace(os.Getenv("DEVICE_ID")),
		MachineID:      strings.TrimSpace(os.Getenv("MACHINE_ID")),
		APIBaseURL:     strings.TrimRight(stringOr(logger, "API_BASE_URL", "http://localhost:"+DefaultPort), "/"),
		QRDataFile:     stringOr(logger, "QR_DATA_FILE", DefaultQRDataFile),
		LocalName:      stringOr(nil, "BLE_LOCAL_NAME", "Remote LED"),
		BLEServiceUUID: stringOr(nil, "BLE_SERVICE_UUID", DefaultBLEServiceUUID),
		BLECharUUID:    stringOr(nil, "BLE_CHAR_UUID", DefaultBLECharUUID),
		BLEKey:         stringOr(nil, "BLE_KEY", DefaultBLEKey),
	}
	simulate, err := boolEnv("LED_SIMULATE")
	if err != nil {
		return Controller{}, err
	}
	cfg.SimulateLEDs = simulate

	if err := cfg.Validate(); err != nil {
		return Controller{}, err
	}
	return cfg, nil
}

func (c Controller) Validate() error {
	var errs []error
	if c.DeviceID == "" {
		errs = append(errs, fmt.Errorf("%w: DEVICE_ID", errMissingSetting))
	}
	if c.BLEKey == "" {
		errs = append(errs, fmt.Errorf("%w: BLE_KEY", errMissingSetting))
	}
	return errors.Join(errs...)
}
