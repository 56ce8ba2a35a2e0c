package whitelist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestFileStore(t *testing.T, idLen int) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whitelist.sqf")
	if err := os.WriteFile(path, []byte(sampleFile), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	reg := testRegistry(t)
	store := NewFileStore(NewFileSource(path), NewCodec(reg), reg, idLen, nil)
	return store, path
}

func fileBytes(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return string(data)
}

func TestFileStoreAddIsIdempotentInEffect(t *testing.T) {
	store, path := newTestFileStore(t, 0)
	ctx := context.Background()
	const id = "76561198000000099"

	if err := store.Add(ctx, "ADMIN", id, Meta{Actor: "ops"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	list, err := store.List(ctx, "ADMIN")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != id {
		t.Fatalf("unexpected ADMIN list: %v", list)
	}

	err = store.Add(ctx, "ADMIN", id, Meta{Actor: "ops"})
	if !errors.Is(err, ErrAlreadyWhitelisted) {
		t.Fatalf("expected ErrAlreadyWhitelisted, got %v", err)
	}
	if got := strings.Count(fileBytes(t, path), id); got != 1 {
		t.Fatalf("expected exactly one occurrence in file, found %d", got)
	}
}

func TestFileStoreAddAppendsToEnd(t *testing.T) {
	store, _ := newTestFileStore(t, 0)
	ctx := context.Background()
	if err := store.Add(ctx, "S3", "76561198000000099", Meta{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	list, err := store.List(ctx, "s3")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"76561198000000001", "76561198000000002", "76561198000000099"}
	if len(list) != len(want) {
		t.Fatalf("unexpected list: %v", list)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Fatalf("order not preserved: %v", list)
		}
	}
}

func TestFileStoreAddValidationDoesNotTouchFile(t *testing.T) {
	store, path := newTestFileStore(t, 0)
	before := fileBytes(t, path)
	ctx := context.Background()

	err := store.Add(ctx, "ADMIN", "not-a-valid-id", Meta{})
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	// Too short and too long both fail against the configured length.
	if err := store.Add(ctx, "ADMIN", "123", Meta{}); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	if err := store.Add(ctx, "BOGUS_ROLE", "76561198000000001", Meta{}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if fileBytes(t, path) != before {
		t.Fatal("file changed despite failed validation")
	}
}

func TestFileStoreConfigurableIdentifierLength(t *testing.T) {
	store, _ := newTestFileStore(t, 18)
	ctx := context.Background()
	if err := store.Add(ctx, "ADMIN", "765611980000000991", Meta{}); err != nil {
		t.Fatalf("18-digit add: %v", err)
	}
	if err := store.Add(ctx, "ADMIN", "76561198000000099", Meta{}); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("17 digits must fail under 18-digit config, got %v", err)
	}
}

func TestFileStoreRemove(t *testing.T) {
	store, _ := newTestFileStore(t, 0)
	ctx := context.Background()

	if err := store.Remove(ctx, "ALL", "76561198000000002", Meta{Actor: "ops"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list, err := store.List(ctx, "ALL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"76561198000000001", "76561198000000003", "765611980000000044"}
	if len(list) != len(want) {
		t.Fatalf("unexpected list after remove: %v", list)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Fatalf("relative order not preserved: %v", list)
		}
	}

	err = store.Remove(ctx, "ALL", "76561198000000002", Meta{})
	if !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted on second remove, got %v", err)
	}
}

func TestFileStoreMutationsLeaveOtherBlocksAlone(t *testing.T) {
	store, path := newTestFileStore(t, 0)
	before := fileBytes(t, path)
	start, _, ok := findListSpan(before, "ADMIN")
	if !ok {
		t.Fatal("fixture must contain an ADMIN block")
	}
	if err := store.Add(context.Background(), "ADMIN", "76561198000000099", Meta{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	after := fileBytes(t, path)
	if after[:start] != before[:start] {
		t.Fatal("bytes before the ADMIN list changed")
	}
	if !strings.Contains(after, "// CAS pilots. Single quotes on purpose, legacy block.") {
		t.Fatal("comment outside the target block was lost")
	}
}

func TestFileStoreSourceUnavailable(t *testing.T) {
	reg := testRegistry(t)
	missing := filepath.Join(t.TempDir(), "nope.sqf")
	store := NewFileStore(NewFileSource(missing), NewCodec(reg), reg, 0, nil)
	_, err := store.List(context.Background(), "ADMIN")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFileStoreListAll(t *testing.T) {
	store, _ := newTestFileStore(t, 0)
	doc, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if !doc.Has("S3", "76561198000000001") {
		t.Fatal("expected S3 membership in full document")
	}
	if got := doc.IDs("DEVELOPER"); len(got) != 0 {
		t.Fatalf("expected empty DEVELOPER list, got %v", got)
	}
}
