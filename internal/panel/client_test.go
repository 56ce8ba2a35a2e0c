package panel

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/milsim-hq/rosterd/internal/whitelist"
)

func newPanelServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/servers/srv-42/files/download", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sekrit" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := files[r.URL.Query().Get("path")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/servers/srv-42/files/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sekrit" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		files[r.URL.Query().Get("path")] = string(data)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientDownloadUploadRoundTrip(t *testing.T) {
	files := map[string]string{"mpmissions/whitelist.sqf": "original"}
	srv := newPanelServer(t, files)
	client := NewClient(srv.URL, "sekrit", "srv-42", 0)
	ctx := context.Background()

	text, err := client.Download(ctx, "mpmissions/whitelist.sqf")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if text != "original" {
		t.Fatalf("unexpected body %q", text)
	}

	if err := client.Upload(ctx, "mpmissions/whitelist.sqf", "rewritten"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if files["mpmissions/whitelist.sqf"] != "rewritten" {
		t.Fatal("upload did not overwrite the remote file")
	}
}

func TestClientRejectsBadToken(t *testing.T) {
	srv := newPanelServer(t, map[string]string{"f": "x"})
	client := NewClient(srv.URL, "wrong", "srv-42", 0)
	if _, err := client.Download(context.Background(), "f"); err == nil {
		t.Fatal("expected error on bad token")
	}
}

func TestRemoteSourceClassifiesFailures(t *testing.T) {
	srv := newPanelServer(t, map[string]string{})
	client := NewClient(srv.URL, "sekrit", "srv-42", 0)
	source := NewRemoteSource(client, "missing.sqf")

	_, err := source.Fetch(context.Background())
	if !errors.Is(err, whitelist.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestRemoteSourceBacksFileStore(t *testing.T) {
	const fixture = `if (_role == "ADMIN") then {
	_return = [
		"76561198000000001"
	];
};`
	files := map[string]string{"whitelist.sqf": fixture}
	srv := newPanelServer(t, files)
	client := NewClient(srv.URL, "sekrit", "srv-42", 0)
	source := NewRemoteSource(client, "whitelist.sqf")

	text, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != fixture {
		t.Fatalf("unexpected remote text %q", text)
	}
	if err := source.Push(context.Background(), text+"\n"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if files["whitelist.sqf"] != fixture+"\n" {
		t.Fatal("push did not reach the remote file")
	}
}
