package whitelist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/milsim-hq/rosterd/internal/roles"
)

// Sentinel errors shared by every whitelist backend. Validation failures
// are non-mutating: when one is returned the underlying source has not
// been touched. Callers render them inline, they are never fatal.
var (
	ErrInvalidRole        = errors.New("whitelist: unknown role")
	ErrInvalidIdentifier  = errors.New("whitelist: identifier format invalid")
	ErrAlreadyWhitelisted = errors.New("whitelist: identifier already whitelisted")
	ErrNotWhitelisted     = errors.New("whitelist: identifier not whitelisted")
	ErrSourceUnavailable  = errors.New("whitelist: source unavailable")
)

// DefaultIdentifierLength is the SteamID64 digit count. Some legacy files
// carry 18-digit values, so the length is configurable per store.
const DefaultIdentifierLength = 17

// Store is the operation surface shared by the file and database backends.
type Store interface {
	List(ctx context.Context, role string) ([]string, error)
	ListAll(ctx context.Context) (*Document, error)
	Add(ctx context.Context, role, id string, meta Meta) error
	Remove(ctx context.Context, role, id string, meta Meta) error
}

// FileStore mutates a whitelist text source through the codec. Every call
// is a self-contained read-parse-mutate-write cycle; nothing is cached
// between calls and concurrent writers race with last-write-wins.
type FileStore struct {
	source   Source
	codec    *Codec
	registry *roles.Registry
	idLen    int
	logger   *slog.Logger
}

// NewFileStore wires a store over source. idLen <= 0 selects the default
// 17-digit SteamID64 format.
func NewFileStore(source Source, codec *Codec, reg *roles.Registry, idLen int, logger *slog.Logger) *FileStore {
	if idLen <= 0 {
		idLen = DefaultIdentifierLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{source: source, codec: codec, registry: reg, idLen: idLen, logger: logger}
}

// ValidIdentifier reports whether id is a pure digit run of the configured
// length. Equality elsewhere is exact string match, never numeric.
func (s *FileStore) ValidIdentifier(id string) bool {
	return len(id) == s.idLen && allDigits(id)
}

// List returns the identifiers whitelisted for role, in file order.
func (s *FileStore) List(ctx context.Context, role string) ([]string, error) {
	code, err := s.role(role)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.IDs(code), nil
}

// ListAll parses the full document.
func (s *FileStore) ListAll(ctx context.Context) (*Document, error) {
	return s.load(ctx)
}

// Add appends id to the end of role's list and writes the file back.
// A second Add of the same pair reports ErrAlreadyWhitelisted and leaves
// the file untouched.
func (s *FileStore) Add(ctx context.Context, role, id string, meta Meta) error {
	code, err := s.role(role)
	if err != nil {
		return err
	}
	if !s.ValidIdentifier(id) {
		return fmt.Errorf("%w: %q (want %d digits)", ErrInvalidIdentifier, id, s.idLen)
	}
	text, err := s.source.Fetch(ctx)
	if err != nil {
		return err
	}
	doc := s.codec.Parse(text)
	if doc.Has(code, id) {
		return fmt.Errorf("%w: %s under %s", ErrAlreadyWhitelisted, id, code)
	}
	updated, err := s.codec.Replace(text, code, append(doc.IDs(code), id))
	if err != nil {
		return err
	}
	if err := s.source.Push(ctx, updated); err != nil {
		return err
	}
	s.logger.Info("whitelist add",
		slog.String("role", code),
		slog.String("steam_uid", id),
		slog.String("actor", meta.Actor))
	return nil
}

// Remove drops id from role's list, preserving the relative order of the
// remaining entries. Removing an absent pair reports ErrNotWhitelisted.
func (s *FileStore) Remove(ctx context.Context, role, id string, meta Meta) error {
	code, err := s.role(role)
	if err != nil {
		return err
	}
	text, err := s.source.Fetch(ctx)
	if err != nil {
		return err
	}
	doc := s.codec.Parse(text)
	if !doc.Has(code, id) {
		return fmt.Errorf("%w: %s under %s", ErrNotWhitelisted, id, code)
	}
	ids := doc.IDs(code)
	kept := make([]string, 0, len(ids)-1)
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	updated, err := s.codec.Replace(text, code, kept)
	if err != nil {
		return err
	}
	if err := s.source.Push(ctx, updated); err != nil {
		return err
	}
	s.logger.Info("whitelist remove",
		slog.String("role", code),
		slog.String("steam_uid", id),
		slog.String("actor", meta.Actor))
	return nil
}

func (s *FileStore) role(role string) (string, error) {
	code := roles.Normalize(role)
	if !s.registry.Valid(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return code, nil
}

func (s *FileStore) load(ctx context.Context) (*Document, error) {
	text, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.codec.Parse(text), nil
}
