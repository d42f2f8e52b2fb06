package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

const settingsCacheKey = "settings:singleton"

type settingsStore interface {
	Get(ctx context.Context, defaults models.Settings) (*models.Settings, error)
	Update(ctx context.Context, settings *models.Settings) error
}

type settingsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SettingsService serves the singleton configuration row. Reads go through
// Redis; the row is created from configured defaults on first access.
type SettingsService struct {
	repo     settingsStore
	cache    settingsCache
	defaults models.Settings
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(repo settingsStore, cache settingsCache, defaults models.Settings, cacheTTL time.Duration, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SettingsService{repo: repo, cache: cache, defaults: defaults, cacheTTL: cacheTTL, logger: logger}
}

// Get returns the current settings, creating the row on first read.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	if s.cache != nil {
		var cached models.Settings
		if err := s.cache.Get(ctx, settingsCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("settings cache read failed", zap.Error(err))
		}
	}

	settings, err := s.repo.Get(ctx, s.defaults)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, settingsCacheKey, settings, s.cacheTTL); err != nil {
			s.logger.Warn("settings cache write failed", zap.Error(err))
		}
	}
	return settings, nil
}

// Update applies partial changes and invalidates the cache.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest) (*models.Settings, error) {
	settings, err := s.repo.Get(ctx, s.defaults)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	if req.SchoolName != nil {
		settings.SchoolName = *req.SchoolName
	}
	if req.AcademicYear != nil {
		settings.AcademicYear = *req.AcademicYear
	}
	if req.Semester != nil {
		settings.Semester = *req.Semester
	}
	if req.MaxCourseLoad != nil {
		if *req.MaxCourseLoad < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "maxCourseLoad must be at least 1")
		}
		settings.MaxCourseLoad = *req.MaxCourseLoad
	}
	if req.AllowConflicts != nil {
		settings.AllowConflicts = *req.AllowConflicts
	}

	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, settingsCacheKey); err != nil {
			s.logger.Warn("settings cache invalidation failed", zap.Error(err))
		}
	}
	return settings, nil
}
