package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/domain"
)

func TestCatalogService_CreateDevice(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewCatalogService(store, clock.NewFixed(now))

	got, err := svc.CreateDevice(context.Background(), CreateDeviceInput{Name: "  Washer 3 "})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	if got.ID == "" || got.Name != "Washer 3" || got.Status != domain.DeviceStatusActive || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected device %+v", got)
	}

	if _, err := svc.CreateDevice(context.Background(), CreateDeviceInput{Name: " "}); !errors.Is(err, domain.ErrDeviceNameRequired) {
		t.Fatalf("expected ErrDeviceNameRequired, got %v", err)
	}
	if _, err := svc.CreateDevice(context.Background(), CreateDeviceInput{Name: "x", Status: "BROKEN"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCatalogService_CreateService(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.devices["dev-1"] = domain.Device{ID: "dev-1", Name: "Dryer"}
	svc := NewCatalogService(store, clock.NewFixed(now))

	inactive := false
	got, err := svc.CreateService(context.Background(), CreateServiceInput{
		DeviceID:      "dev-1",
		Name:          "Dry",
		Type:          domain.ServiceTypeVariable,
		PriceCents:    25,
		MinutesPer25c: 6,
		Active:        &inactive,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if got.Active || got.MinutesPer25c != 6 {
		t.Fatalf("unexpected service %+v", got)
	}

	cases := []struct {
		in   CreateServiceInput
		want error
	}{
		{in: CreateServiceInput{Name: "x", Type: domain.ServiceTypeTrigger}, want: domain.ErrInvalidID},
		{in: CreateServiceInput{DeviceID: "dev-1", Type: domain.ServiceTypeTrigger}, want: domain.ErrServiceNameRequired},
		{in: CreateServiceInput{DeviceID: "dev-1", Name: "x", Type: "HOURLY"}, want: domain.ErrInvalidServiceType},
		{in: CreateServiceInput{DeviceID: "dev-1", Name: "x", Type: domain.ServiceTypeFixed}, want: domain.ErrInvalidServiceSettings},
		{in: CreateServiceInput{DeviceID: "dev-1", Name: "x", Type: domain.ServiceTypeVariable}, want: domain.ErrInvalidServiceSettings},
		{in: CreateServiceInput{DeviceID: "dev-1", Name: "x", Type: domain.ServiceTypeTrigger, PriceCents: -5}, want: domain.ErrInvalidAmount},
		{in: CreateServiceInput{DeviceID: "missing", Name: "x", Type: domain.ServiceTypeTrigger}, want: domain.ErrDeviceNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.CreateService(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("input %+v: expected %v, got %v", tc.in, tc.want, err)
		}
	}

	if _, err := svc.ListServices(context.Background(), ""); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	services, err := svc.ListServices(context.Background(), "dev-1")
	if err != nil || len(services) != 1 {
		t.Fatalf("expected one service, got %d err=%v", len(services), err)
	}
}
