package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry represents a record stored in whitelist_audit_log.
type AuditEntry struct {
	SteamUID      string
	WhitelistType string
	Action        string
	PerformedBy   string
	Old           map[string]any
	New           map[string]any
	At            time.Time
}

// AuditLogger writes records into whitelist_audit_log. Audit writes are
// best-effort: a failed audit insert must never fail the mutation it
// describes, so callers use Record which logs and swallows.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{pool: pool, logger: logger}
}

// Record persists the entry, logging and swallowing any failure.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) {
	if l == nil || l.pool == nil {
		return
	}
	if err := l.insert(ctx, entry); err != nil {
		l.logger.Warn("audit log write failed",
			slog.String("action", entry.Action),
			slog.String("steam_uid", entry.SteamUID),
			slog.Any("error", err))
	}
}

func (l *AuditLogger) insert(ctx context.Context, entry AuditEntry) error {
	if entry.SteamUID == "" || entry.WhitelistType == "" || entry.Action == "" {
		return errors.New("audit entry requires steam_uid/whitelist_type/action")
	}
	oldJSON, err := json.Marshal(entry.Old)
	if err != nil {
		return err
	}
	newJSON, err := json.Marshal(entry.New)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO whitelist_audit_log (id, steam_uid, whitelist_type, action, performed_by, old_values, new_values, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), entry.SteamUID, entry.WhitelistType, entry.Action, entry.PerformedBy, oldJSON, newJSON, at)
	return err
}
