package whitelist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/milsim-hq/rosterd/internal/roles"
	"github.com/milsim-hq/rosterd/internal/shared"
)

// ServiceConfig tunes the service wiring.
type ServiceConfig struct {
	// IdentifierLength overrides the SteamID64 digit count, default 17.
	IdentifierLength int
	// DBTimeout bounds each database call. Timeouts are transient: the
	// call degrades to the file source instead of failing. Default 10s.
	DBTimeout time.Duration
}

// Service fronts the whitelist backends. The database is the primary
// source when configured; any database outage, timeout or empty result
// degrades to the legacy file source (fail-open toward the file the game
// server actually reads). Mutations are audited and invalidate the cache.
type Service struct {
	registry *roles.Registry
	repo     RepositoryPort
	file     *FileStore
	cache    *Cache
	audit    *shared.AuditLogger
	logger   *slog.Logger
	cfg      ServiceConfig
	loads    singleflight.Group
}

// NewService builds a Service. repo, cache and audit may be nil when the
// corresponding backend is not configured; file is mandatory.
func NewService(reg *roles.Registry, repo RepositoryPort, file *FileStore, cache *Cache, audit *shared.AuditLogger, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.IdentifierLength <= 0 {
		cfg.IdentifierLength = DefaultIdentifierLength
	}
	if cfg.DBTimeout <= 0 {
		cfg.DBTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: reg, repo: repo, file: file, cache: cache, audit: audit, logger: logger, cfg: cfg}
}

// List returns the identifiers whitelisted for role. force bypasses the
// cache and refreshes it.
func (s *Service) List(ctx context.Context, role string, force bool) ([]string, error) {
	code, err := s.role(role)
	if err != nil {
		return nil, err
	}
	return s.cache.FetchIDs(ctx, code, force, func(ctx context.Context) ([]string, error) {
		return s.listBackend(ctx, code)
	})
}

// IsWhitelisted reports whether id holds an active membership under role.
func (s *Service) IsWhitelisted(ctx context.Context, role, id string, force bool) (bool, error) {
	ids, err := s.List(ctx, role, force)
	if err != nil {
		return false, err
	}
	for _, existing := range ids {
		if existing == id {
			return true, nil
		}
	}
	return false, nil
}

// ListAll returns the full role -> identifiers document. Concurrent
// callers share a single backend load.
func (s *Service) ListAll(ctx context.Context) (*Document, error) {
	ch := s.loads.DoChan("listall", func() (interface{}, error) {
		return s.listAllBackend(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Document), nil
	}
}

// Add whitelists id under role. The database path reactivates soft
// deleted rows instead of inserting duplicates.
func (s *Service) Add(ctx context.Context, role, id string, meta Meta) error {
	code, err := s.role(role)
	if err != nil {
		return err
	}
	if !s.validIdentifier(id) {
		return fmt.Errorf("%w: %q (want %d digits)", ErrInvalidIdentifier, id, s.cfg.IdentifierLength)
	}

	action := "ADD"
	var old map[string]any
	if s.repo != nil {
		dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
		reactivated, err := s.repo.Add(dbCtx, code, id, meta)
		cancel()
		switch {
		case err == nil:
			if reactivated {
				action = "REACTIVATE"
				old = map[string]any{"is_active": false}
			}
		case fallbackEligible(err):
			s.logger.Warn("database add degraded to file source",
				slog.String("role", code), slog.Any("error", err))
			if err := s.file.Add(ctx, code, id, meta); err != nil {
				return err
			}
		default:
			return err
		}
	} else {
		if err := s.file.Add(ctx, code, id, meta); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, shared.AuditEntry{
		SteamUID:      id,
		WhitelistType: code,
		Action:        action,
		PerformedBy:   meta.Actor,
		Old:           old,
		New:           map[string]any{"is_active": true, "player_name": meta.PlayerName, "notes": meta.Notes},
	})
	s.bump(ctx, code)
	return nil
}

// Remove revokes id's membership under role.
func (s *Service) Remove(ctx context.Context, role, id string, meta Meta) error {
	code, err := s.role(role)
	if err != nil {
		return err
	}

	if s.repo != nil {
		dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
		err := s.repo.Remove(dbCtx, code, id, meta)
		cancel()
		switch {
		case err == nil:
		case fallbackEligible(err):
			s.logger.Warn("database remove degraded to file source",
				slog.String("role", code), slog.Any("error", err))
			if err := s.file.Remove(ctx, code, id, meta); err != nil {
				return err
			}
		default:
			return err
		}
	} else {
		if err := s.file.Remove(ctx, code, id, meta); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, shared.AuditEntry{
		SteamUID:      id,
		WhitelistType: code,
		Action:        "REMOVE",
		PerformedBy:   meta.Actor,
		Old:           map[string]any{"is_active": true},
		New:           map[string]any{"is_active": false},
	})
	s.bump(ctx, code)
	return nil
}

// Roles exposes the configured role set for the API surface.
func (s *Service) Roles() []roles.Role {
	return s.registry.Roles()
}

func (s *Service) listBackend(ctx context.Context, code string) ([]string, error) {
	if s.repo == nil {
		return s.file.List(ctx, code)
	}
	dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	ids, err := s.repo.ListRole(dbCtx, code)
	cancel()
	if err != nil {
		if !fallbackEligible(err) {
			return nil, err
		}
		s.logger.Warn("database list degraded to file source",
			slog.String("role", code), slog.Any("error", err))
		return s.file.List(ctx, code)
	}
	if len(ids) == 0 {
		// Fail open toward the file the game server reads: an unseeded
		// database must not make an existing whitelist invisible.
		return s.file.List(ctx, code)
	}
	return ids, nil
}

func (s *Service) listAllBackend(ctx context.Context) (*Document, error) {
	if s.repo != nil {
		dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
		byRole, err := s.repo.ListAll(dbCtx)
		cancel()
		if err == nil && len(byRole) > 0 {
			doc := NewDocument(s.registry)
			for code, ids := range byRole {
				doc.set(code, ids)
			}
			return doc, nil
		}
		if err != nil && !fallbackEligible(err) {
			return nil, err
		}
		if err != nil {
			s.logger.Warn("database listing degraded to file source", slog.Any("error", err))
		}
	}
	return s.file.ListAll(ctx)
}

func (s *Service) role(role string) (string, error) {
	code := roles.Normalize(role)
	if !s.registry.Valid(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return code, nil
}

func (s *Service) validIdentifier(id string) bool {
	return len(id) == s.cfg.IdentifierLength && allDigits(id)
}

func (s *Service) bump(ctx context.Context, code string) {
	if err := s.cache.Bump(ctx, code); err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("role", code), slog.Any("error", err))
	}
}

// fallbackEligible classifies transient backend failures that should
// degrade to the file source rather than surface.
func fallbackEligible(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
