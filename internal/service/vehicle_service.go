package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateVehicleRequest struct {
	PlateNumber      string `json:"plate_number" binding:"required"`
	Model            string `json:"model" binding:"required"`
	FuelEfficiency   string `json:"fuel_efficiency_km_per_liter" binding:"required"`
	AssignedDriverID string `json:"assigned_driver_id"`
}

type UpdateVehicleRequest struct {
	Model            string `json:"model"`
	FuelEfficiency   string `json:"fuel_efficiency_km_per_liter"`
	AssignedDriverID string `json:"assigned_driver_id"`
}

type VehicleResponse struct {
	ID               string  `json:"id"`
	PlateNumber      string  `json:"plate_number"`
	Model            string  `json:"model"`
	FuelEfficiency   string  `json:"fuel_efficiency_km_per_liter"`
	IsAvailable      bool    `json:"is_available"`
	AssignedDriverID *string `json:"assigned_driver_id"`
	AssignedDriver   string  `json:"assigned_driver,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

type VehicleService interface {
	CreateVehicle(ctx context.Context, req CreateVehicleRequest) (VehicleResponse, error)
	GetVehicleByID(ctx context.Context, id string) (VehicleResponse, error)
	ListVehicles(ctx context.Context, onlyAvailable bool, page, limit int) ([]VehicleResponse, int64, error)
	UpdateVehicle(ctx context.Context, id string, req UpdateVehicleRequest) (VehicleResponse, error)
}

type vehicleService struct {
	repo  repository.VehicleRepository
	users repository.UserRepository
}

func NewVehicleService(repo repository.VehicleRepository, users repository.UserRepository) VehicleService {
	return &vehicleService{repo: repo, users: users}
}

func (s *vehicleService) CreateVehicle(ctx context.Context, req CreateVehicleRequest) (VehicleResponse, error) {
	efficiency, err := decimal.NewFromString(req.FuelEfficiency)
	if err != nil || efficiency.LessThanOrEqual(decimal.Zero) {
		return VehicleResponse{}, errors.New("fuel efficiency must be a positive number")
	}

	vehicle := model.Vehicle{
		PlateNumber:    req.PlateNumber,
		Model:          req.Model,
		FuelEfficiency: efficiency,
		IsAvailable:    true,
	}

	if req.AssignedDriverID != "" {
		driverID, assignErr := s.resolveDriver(ctx, req.AssignedDriverID)
		if assignErr != nil {
			return VehicleResponse{}, assignErr
		}
		vehicle.AssignedDriverID = driverID
	}

	if err := s.repo.Create(ctx, &vehicle); err != nil {
		return VehicleResponse{}, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return toVehicleResponse(vehicle), nil
}

func (s *vehicleService) GetVehicleByID(ctx context.Context, id string) (VehicleResponse, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return VehicleResponse{}, errors.New("invalid vehicle id")
	}
	vehicle, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return VehicleResponse{}, errors.New("vehicle not found")
	}
	return toVehicleResponse(*vehicle), nil
}

func (s *vehicleService) ListVehicles(ctx context.Context, onlyAvailable bool, page, limit int) ([]VehicleResponse, int64, error) {
	vehicles, total, err := s.repo.List(ctx, onlyAvailable, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch vehicles: %w", err)
	}

	result := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		result = append(result, toVehicleResponse(v))
	}
	return result, total, nil
}

func (s *vehicleService) UpdateVehicle(ctx context.Context, id string, req UpdateVehicleRequest) (VehicleResponse, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return VehicleResponse{}, errors.New("invalid vehicle id")
	}
	vehicle, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return VehicleResponse{}, errors.New("vehicle not found")
	}

	if req.Model != "" {
		vehicle.Model = req.Model
	}
	if req.FuelEfficiency != "" {
		efficiency, parseErr := decimal.NewFromString(req.FuelEfficiency)
		if parseErr != nil || efficiency.LessThanOrEqual(decimal.Zero) {
			return VehicleResponse{}, errors.New("fuel efficiency must be a positive number")
		}
		vehicle.FuelEfficiency = efficiency
	}
	if req.AssignedDriverID != "" {
		driverID, assignErr := s.resolveDriver(ctx, req.AssignedDriverID)
		if assignErr != nil {
			return VehicleResponse{}, assignErr
		}
		vehicle.AssignedDriverID = driverID
	}

	if err := s.repo.Update(ctx, vehicle); err != nil {
		return VehicleResponse{}, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return toVehicleResponse(*vehicle), nil
}

// resolveDriver checks the referenced user exists and holds the driver role.
func (s *vehicleService) resolveDriver(ctx context.Context, id string) (*uuid.UUID, error) {
	driver, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("assigned driver not found")
	}
	if driver.Role != model.RoleDriver {
		return nil, errors.New("assigned user is not a driver")
	}
	return &driver.ID, nil
}

func toVehicleResponse(v model.Vehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:             v.ID.String(),
		PlateNumber:    v.PlateNumber,
		Model:          v.Model,
		FuelEfficiency: v.FuelEfficiency.String(),
		IsAvailable:    v.IsAvailable,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
	if v.AssignedDriverID != nil {
		s := v.AssignedDriverID.String()
		resp.AssignedDriverID = &s
	}
	if v.AssignedDriver != nil {
		resp.AssignedDriver = v.AssignedDriver.Username
	}
	return resp
}
