package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type settingsStoreStub struct {
	settings  *models.Settings
	getCalls  int
	updCalls  int
	lastWrite *models.Settings
}

func (s *settingsStoreStub) Get(ctx context.Context, defaults models.Settings) (*models.Settings, error) {
	s.getCalls++
	if s.settings == nil {
		defaults.ID = "settings-1"
		s.settings = &defaults
	}
	copy := *s.settings
	return &copy, nil
}

func (s *settingsStoreStub) Update(ctx context.Context, settings *models.Settings) error {
	s.updCalls++
	copy := *settings
	s.settings = &copy
	s.lastWrite = &copy
	return nil
}

type cacheStub struct {
	values  map[string]interface{}
	deletes []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{values: make(map[string]interface{})}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if settings, ok := value.(*models.Settings); ok {
		if out, ok := dest.(*models.Settings); ok {
			*out = *settings
			return nil
		}
	}
	return appErrors.ErrCacheMiss
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if settings, ok := value.(*models.Settings); ok {
		copy := *settings
		c.values[key] = &copy
	}
	return nil
}

func (c *cacheStub) Delete(ctx context.Context, key string) error {
	c.deletes = append(c.deletes, key)
	delete(c.values, key)
	return nil
}

func TestSettingsGetCreatesDefaultsOnFirstRead(t *testing.T) {
	store := &settingsStoreStub{}
	svc := NewSettingsService(store, newCacheStub(), models.Settings{MaxCourseLoad: 8, AllowConflicts: false}, time.Minute, nil)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, settings.MaxCourseLoad)
	require.False(t, settings.AllowConflicts)
	require.Equal(t, 1, store.getCalls)
}

func TestSettingsGetServesFromCache(t *testing.T) {
	store := &settingsStoreStub{}
	cache := newCacheStub()
	svc := NewSettingsService(store, cache, models.Settings{MaxCourseLoad: 8}, time.Minute, nil)

	_, err := svc.Get(context.Background())
	require.NoError(t, err)
	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, store.getCalls)
}

func TestSettingsUpdateInvalidatesCache(t *testing.T) {
	store := &settingsStoreStub{}
	cache := newCacheStub()
	svc := NewSettingsService(store, cache, models.Settings{MaxCourseLoad: 8}, time.Minute, nil)

	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	load := 6
	allow := true
	updated, err := svc.Update(context.Background(), dto.UpdateSettingsRequest{
		MaxCourseLoad:  &load,
		AllowConflicts: &allow,
	})
	require.NoError(t, err)
	require.Equal(t, 6, updated.MaxCourseLoad)
	require.True(t, updated.AllowConflicts)
	require.Contains(t, cache.deletes, settingsCacheKey)

	// The next read reflects the update, not the stale cache entry.
	fresh, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, fresh.MaxCourseLoad)
}

func TestSettingsUpdateRejectsZeroLoad(t *testing.T) {
	store := &settingsStoreStub{}
	svc := NewSettingsService(store, newCacheStub(), models.Settings{MaxCourseLoad: 8}, time.Minute, nil)

	zero := 0
	_, err := svc.Update(context.Background(), dto.UpdateSettingsRequest{MaxCourseLoad: &zero})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
	require.Zero(t, store.updCalls)
}
