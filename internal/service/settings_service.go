package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// SettingsCache stores per-tenant settings with a TTL. Implemented by the
// redis layer; a nil cache degrades to direct store reads.
type SettingsCache interface {
	GetSettings(ctx context.Context, orgID string) (*domain.OrganizationSettings, error)
	SetSettings(ctx context.Context, orgID string, settings domain.OrganizationSettings, ttl time.Duration) error
	InvalidateSettings(ctx context.Context, orgID string) error
}

// SettingsService answers tenant-level behavior questions with a
// read-through cache in front of the organization store.
type SettingsService struct {
	organizations repository.OrganizationRepository
	cache         SettingsCache
	ttl           time.Duration
	logger        *zap.Logger
}

// NewSettingsService constructs the service. ttl <= 0 selects a default.
func NewSettingsService(organizations repository.OrganizationRepository, cache SettingsCache, ttl time.Duration, logger *zap.Logger) *SettingsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		organizations: organizations,
		cache:         cache,
		ttl:           ttl,
		logger:        logger,
	}
}

// ManualTicketIDEnabled reports whether the tenant allows caller-supplied
// ticket codes. Actors without a tenant always get false.
func (s *SettingsService) ManualTicketIDEnabled(ctx context.Context, orgID *string) (bool, error) {
	if orgID == nil || *orgID == "" {
		return false, nil
	}
	settings, err := s.Settings(ctx, *orgID)
	if err != nil {
		return false, err
	}
	return settings.ManualTicketID, nil
}

// Settings returns tenant settings, cache first.
func (s *SettingsService) Settings(ctx context.Context, orgID string) (domain.OrganizationSettings, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSettings(ctx, orgID)
		if err != nil {
			s.logger.Warn("settings cache read failed", zap.String("org_id", orgID), zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	org, err := s.organizations.GetByID(ctx, orgID)
	if err != nil {
		return domain.OrganizationSettings{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetSettings(ctx, orgID, org.Settings, s.ttl); err != nil {
			s.logger.Warn("settings cache write failed", zap.String("org_id", orgID), zap.Error(err))
		}
	}
	return org.Settings, nil
}

// Invalidate drops a tenant's cached settings after an update.
func (s *SettingsService) Invalidate(ctx context.Context, orgID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSettings(ctx, orgID); err != nil {
		s.logger.Warn("settings cache invalidation failed", zap.String("org_id", orgID), zap.Error(err))
	}
}
