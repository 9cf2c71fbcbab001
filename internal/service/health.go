package service

import (
	"snaptrade/internal/dto"
	"time"
)

type HealthService interface {
	Check() dto.HealthResponse
}

type healthService struct {
	startedAt time.Time
	now       func() time.Time
}

func NewHealthService() HealthService {
	return &healthService{startedAt: time.Now(), now: time.Now}
}

// Check reports liveness and seconds since the process built its services.
func (h *healthService) Check() dto.HealthResponse {
	return dto.HealthResponse{
		Status: "ok",
		Uptime: h.now().Sub(h.startedAt).Seconds(),
	}
}
