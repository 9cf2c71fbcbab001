package service

import (
	"snaptrade/config"
	"snaptrade/internal/repository"
	"snaptrade/pkg/logger"
)

type Service struct {
	AnalyzerService AnalyzerService
	HealthService   HealthService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	validator *Validator,
) *Service {
	return &Service{
		AnalyzerService: NewAnalyzerService(cfg, log, validator, repo.VisionRepo),
		HealthService:   NewHealthService(),
	}
}
