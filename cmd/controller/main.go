package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/config"
	"github.com/remoteled/platform/internal/led"
	"github.com/remoteled/platform/internal/peripheral"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := log.Default()
	config.LoadEnvFile(logger)

	cfg, err := config.LoadControllerFromEnv(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine := led.NewEngine(newDriver(cfg, logger), logger)
	defer func() {
		if err := engine.Close(); err != nil {
			log.Printf("WARN: release leds: %v", err)
		}
	}()

	display := peripheral.NewFileDisplay(cfg.QRDataFile, clock.NewSystem())
	ctrl := peripheral.NewController(engine, display, cfg.BLEKey, logger)

	radio, err := peripheral.NewTinyGoPeripheral(ctrl, cfg.BLEServiceUUID, cfg.BLECharUUID, cfg.LocalName, logger)
	if err != nil {
		log.Fatalf("bluetooth peripheral: %v", err)
	}
	if err := radio.Start(); err != nil {
		log.Fatalf("start advertising: %v", err)
	}

	mac, err := radio.MAC()
	if err != nil {
		logger.Printf("WARN: read adapter address: %v", err)
	}
	link := peripheral.DeepLink(peripheral.LinkParams{
		APIBaseURL:  cfg.APIBaseURL,
		MachineID:   cfg.MachineID,
		MAC:         mac,
		ServiceUUID: cfg.BLEServiceUUID,
		CharUUID:    cfg.BLECharUUID,
		Key:         cfg.BLEKey,
	})
	if err := display.Publish(link); err != nil {
		logger.Printf("WARN: write qr data path=%s err=%v", cfg.QRDataFile, err)
	}
	log.Printf("controller advertising device=%s name=%q mac=%s", cfg.DeviceID, cfg.LocalName, mac)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return radio.Run(gctx) })
	if err := g.Wait(); err != nil {
		log.Printf("controller stopped with error: %v", err)
		return
	}
	log.Printf("controller stopped")
}

func newDriver(cfg config.Controller, logger *log.Logger) led.Driver {
	if cfg.SimulateLEDs {
		return led.NewSimulatedDriver(logger)
	}
	d, err := led.NewGPIODriver(led.DefaultPins)
	if err != nil {
		logger.Printf("WARN: gpio unavailable, simulating leds err=%v", err)
		return led.NewSimulatedDriver(logger)
	}
	return d
}
