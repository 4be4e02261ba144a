package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/gridsight/gridsight/dbopen"
	"github.com/gridsight/gridsight/scan"
	"github.com/gridsight/gridsight/store"
)

type stubAcquirer struct{ markup string }

func (s stubAcquirer) Acquire(ctx context.Context, url string) (string, error) {
	return s.markup, nil
}
func (s stubAcquirer) Close() error { return nil }

func testApp(t *testing.T) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var cfg scan.Config
	cfg.ApplyDefaults()

	st := store.NewWithDB(dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema)))
	return newApp(&cfg, scan.NewScanner(stubAcquirer{markup: `<html><body>
		<table id="patients">
		  <tr><th>Name</th><th>Ort</th></tr>
		  <tr><td>Meier</td><td></td></tr>
		</table>
	</body></html>`}, logger), st, logger)
}

func TestHandleScan(t *testing.T) {
	a := testApp(t)
	srv := httptest.NewServer(a.router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/scan", "application/json", strings.NewReader(`{"url":"https://example.test"}`))
	if err != nil {
		t.Fatalf("POST /scan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "patients") {
		t.Fatalf("body = %s", body)
	}
}

func TestHandleScan_MissingURL(t *testing.T) {
	a := testApp(t)
	srv := httptest.NewServer(a.router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/scan", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestScanConflict(t *testing.T) {
	// WHY: one active scan per session; a second request must be rejected
	// with 409, not queued.
	a := testApp(t)

	release, err := a.acquireSession("default")
	if err != nil {
		t.Fatalf("acquireSession: %v", err)
	}
	defer release()

	srv := httptest.NewServer(a.router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/scan", "application/json", strings.NewReader(`{"url":"https://example.test"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a := testApp(t)

	release, err := a.acquireSession("alpha")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	release2, err := a.acquireSession("beta")
	if err != nil {
		t.Fatalf("independent session blocked: %v", err)
	}
	release2()
}

func TestAnnotationRoundTrip(t *testing.T) {
	a := testApp(t)
	srv := httptest.NewServer(a.router())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/annotations/row2col2", strings.NewReader(`{"note":"known gap"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/annotations")
	if err != nil {
		t.Fatal(err)
	}
	defer getResp.Body.Close()
	body, _ := io.ReadAll(getResp.Body)
	if !strings.Contains(string(body), "known gap") {
		t.Fatalf("annotations = %s", body)
	}
}
