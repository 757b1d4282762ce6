package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
)

// SettingsStore serves settings snapshots from an instance-scoped cache and
// writes new versions through the repository.
type SettingsStore struct {
	repo            rules.SettingsRepository
	identity        user.Identity
	audit           audit.Sink
	hub             *sse.Hub
	cache           *cache.Value[rules.Settings]
	defaultTimezone string
	logger          *slog.Logger
	now             func() time.Time
}

func NewSettingsStore(
	repo rules.SettingsRepository,
	identity user.Identity,
	sink audit.Sink,
	hub *sse.Hub,
	c *cache.Value[rules.Settings],
	defaultTimezone string,
	logger *slog.Logger,
) *SettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		repo:            repo,
		identity:        identity,
		audit:           sink,
		hub:             hub,
		cache:           c,
		defaultTimezone: defaultTimezone,
		logger:          logger,
		now:             time.Now,
	}
}

// Snapshot implements rules.SettingsService.
func (s *SettingsStore) Snapshot(ctx context.Context) (*rules.Settings, error) {
	return s.cache.Get(ctx, s.load)
}

func (s *SettingsStore) load(ctx context.Context) (*rules.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if errors.Is(err, rules.ErrSettingsNotFound) {
		def := rules.Default(s.defaultTimezone)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load timeclock settings: %w", err)
	}
	return &settings, nil
}

// Update implements rules.SettingsService.
func (s *SettingsStore) Update(ctx context.Context, actorID string, req rules.UpdateSettingsRequest) (*rules.Settings, error) {
	if _, err := user.Authorize(ctx, s.identity, actorID, user.ResourceTimeclockRules, user.ActionManage); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Read through the repository, not the cache: the version check must see the stored row.
	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	expected := current.Version
	if req.Version != 0 && req.Version != expected {
		return nil, rules.ErrVersionConflict
	}

	next := req.ToSettings(actorID, s.now().UTC())
	saved, err := s.repo.Save(ctx, next, expected)
	if err != nil {
		if errors.Is(err, rules.ErrVersionConflict) {
			s.cache.Invalidate()
			return nil, err
		}
		return nil, fmt.Errorf("failed to save timeclock settings: %w", err)
	}

	s.cache.Set(&saved)
	s.logger.Info("timeclock settings updated", "version", saved.Version, "updated_by", actorID)

	if err := s.audit.RecordEvent(ctx, audit.Event{
		UserID:     actorID,
		Action:     audit.ActionSettingsUpdated,
		EntityType: audit.EntitySettings,
		EntityID:   fmt.Sprintf("v%d", saved.Version),
		Before:     current,
		After:      saved,
	}); err != nil {
		s.logger.Error("failed to record settings audit event", "error", err)
	}
	s.hub.Broadcast(sse.EventSettings, map[string]int64{"version": saved.Version})

	return &saved, nil
}

// Invalidate implements rules.SettingsService.
func (s *SettingsStore) Invalidate() {
	s.cache.Invalidate()
}

var _ rules.SettingsService = (*SettingsStore)(nil)
