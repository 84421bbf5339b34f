package services

import (
	"context"

	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
)

const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"

	healthSample = "health_check"
)

type HealthReport struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Encryption string `json:"encryption"`
}

func (r HealthReport) Healthy() bool {
	return r.Status == HealthStatusHealthy
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type HealthService struct {
	db     pinger
	cipher cryptox.Cipher
	logger logging.Logger
}

func NewHealthService(db pinger, c cryptox.Cipher, logger logging.Logger) *HealthService {
	return &HealthService{db: db, cipher: c, logger: logger.With("module", "health")}
}

// Check pings the database and round-trips a sample value through the cipher.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	r := HealthReport{Status: HealthStatusHealthy, Database: "connected", Encryption: "working"}

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error(ctx, "database health check failed", "error", err)
		r.Database = "error"
		r.Status = HealthStatusDegraded
	}

	if !s.encryptionWorks() {
		r.Encryption = "unavailable"
		r.Status = HealthStatusDegraded
	}

	return r
}

func (s *HealthService) encryptionWorks() bool {
	token, err := s.cipher.Encrypt(healthSample)
	if err != nil {
		return false
	}
	plain, err := s.cipher.Decrypt(token)
	return err == nil && plain == healthSample
}
