package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/domain"
)

type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateDeviceInput struct {
	Name   string
	Status domain.DeviceStatus
}

func (s *CatalogService) CreateDevice(ctx context.Context, in CreateDeviceInput) (domain.Device, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Device{}, domain.ErrDeviceNameRequired
	}
	status := in.Status
	if status == "" {
		status = domain.DeviceStatusActive
	}
	if !status.Valid() {
		return domain.Device{}, domain.ErrInvalidStatus
	}

	device := domain.Device{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    status,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateDevice(ctx, device); err != nil {
		return domain.Device{}, err
	}
	return device, nil
}

func (s *CatalogService) ListDevices(ctx context.Context) ([]domain.Device, error) {
	return s.repo.ListDevices(ctx)
}

type CreateServiceInput struct {
	DeviceID      string
	Name          string
	Type          domain.ServiceType
	PriceCents    int
	FixedMinutes  int
	MinutesPer25c int
	Active        *bool
}

func (s *CatalogService) CreateService(ctx context.Context, in CreateServiceInput) (domain.Service, error) {
	if in.DeviceID == "" {
		return domain.Service{}, domain.ErrInvalidID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Service{}, domain.ErrServiceNameRequired
	}
	if !in.Type.Valid() {
		return domain.Service{}, domain.ErrInvalidServiceType
	}
	if in.PriceCents < 0 {
		return domain.Service{}, domain.ErrInvalidAmount
	}
	switch in.Type {
	case domain.ServiceTypeFixed:
		if in.FixedMinutes <= 0 {
			return domain.Service{}, domain.ErrInvalidServiceSettings
		}
	case domain.ServiceTypeVariable:
		if in.MinutesPer25c <= 0 {
			return domain.Service{}, domain.ErrInvalidServiceSettings
		}
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	service := domain.Service{
		ID:            uuid.NewString(),
		DeviceID:      in.DeviceID,
		Name:          name,
		Type:          in.Type,
		PriceCents:    in.PriceCents,
		FixedMinutes:  in.FixedMinutes,
		MinutesPer25c: in.MinutesPer25c,
		Active:        active,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return domain.Service{}, err
	}
	return service, nil
}

func (s *CatalogService) ListServices(ctx context.Context, deviceID string) ([]domain.Service, error) {
	if deviceID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListServicesByDevice(ctx, deviceID)
}
