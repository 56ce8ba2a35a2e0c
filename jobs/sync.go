package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/milsim-hq/rosterd/internal/jobs"
	"github.com/milsim-hq/rosterd/internal/whitelist"
)

// Syncer reconciles the remote game-server whitelist file with the
// authoritative store and keeps the role caches warm.
type Syncer struct {
	service *whitelist.Service
	codec   *whitelist.Codec
	remote  whitelist.Source
	mirror  whitelist.Source
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSyncer constructs a Syncer. remote may be nil when no hosting panel is
// configured; the sync handler then becomes a no-op. mirror, when set,
// receives a copy of the reconciled file so the local fallback stays fresh.
func NewSyncer(service *whitelist.Service, codec *whitelist.Codec, remote, mirror whitelist.Source, logger *slog.Logger, metrics *jobmetrics.Metrics) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{service: service, codec: codec, remote: remote, mirror: mirror, logger: logger, metrics: metrics}
}

// Handlers returns the task registrations for this syncer.
func (s *Syncer) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskRemoteSync, Handler: s.HandleRemoteSync},
		{Type: TaskCacheWarm, Handler: s.HandleCacheWarm},
	}
}

// HandleRemoteSync processes TaskRemoteSync tasks.
func (s *Syncer) HandleRemoteSync(ctx context.Context, t *asynq.Task) error {
	var payload RemoteSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := s.metrics.Track("remote_sync")
	return tracker.End(s.SyncRemote(ctx, payload.Reason))
}

// SyncRemote rewrites every role block of the remote whitelist file with the
// authoritative membership. Blocks the remote file does not carry are left
// alone, as are roles whose content already matches.
func (s *Syncer) SyncRemote(ctx context.Context, reason string) error {
	if s.remote == nil {
		s.logger.Debug("remote sync skipped, no panel configured")
		return nil
	}
	text, err := s.remote.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch remote whitelist: %w", err)
	}
	doc, err := s.service.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list authoritative whitelist: %w", err)
	}

	updated := text
	changed := 0
	for _, role := range s.service.Roles() {
		next, err := s.codec.Replace(updated, role.Code, doc.IDs(role.Code))
		if errors.Is(err, whitelist.ErrBlockNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("rewrite role %s: %w", role.Code, err)
		}
		if next != updated {
			changed++
		}
		updated = next
	}
	if changed > 0 {
		if err := s.remote.Push(ctx, updated); err != nil {
			return fmt.Errorf("push remote whitelist: %w", err)
		}
		s.logger.Info("remote whitelist synced",
			slog.String("reason", reason),
			slog.Int("roles_changed", changed),
		)
	} else {
		s.logger.Info("remote whitelist already in sync", slog.String("reason", reason))
	}
	return s.mirrorLocal(ctx, updated)
}

// mirrorLocal copies the reconciled file onto the local fallback path so a
// later database outage degrades to current data.
func (s *Syncer) mirrorLocal(ctx context.Context, text string) error {
	if s.mirror == nil {
		return nil
	}
	current, err := s.mirror.Fetch(ctx)
	if err == nil && current == text {
		return nil
	}
	if err := s.mirror.Push(ctx, text); err != nil {
		return fmt.Errorf("mirror whitelist locally: %w", err)
	}
	return nil
}

// HandleCacheWarm processes TaskCacheWarm tasks.
func (s *Syncer) HandleCacheWarm(ctx context.Context, t *asynq.Task) error {
	var payload CacheWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := s.metrics.Track("cache_warm")
	return tracker.End(s.WarmCache(ctx))
}

// WarmCache force-refreshes the cached membership of every role.
func (s *Syncer) WarmCache(ctx context.Context) error {
	var firstErr error
	for _, role := range s.service.Roles() {
		if _, err := s.service.List(ctx, role.Code, true); err != nil {
			s.logger.Warn("cache warm failed for role",
				slog.String("role", role.Code),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
