package extapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmarkou/energypulse/config"
)

// providerStub stands in for the external price API.
type providerStub struct {
	tokenField  string
	tokenStatus int
	dataStatus  int
	dataBody    string

	loginCalls int32
	lastAuth   string
	lastFrom   string
	lastTo     string
}

func (p *providerStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.loginCalls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("token method = %s, want POST", r.Method)
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode credentials: %v", err)
		}
		if creds["username"] != "user" || creds["password"] != "secret" {
			t.Errorf("unexpected credentials: %v", creds)
		}
		if p.tokenStatus != 0 {
			w.WriteHeader(p.tokenStatus)
			return
		}
		field := p.tokenField
		if field == "" {
			field = "access_token"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{field: "bearer-token", "expires_in": 3600})
	})
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		p.lastAuth = r.Header.Get("Authorization")
		p.lastFrom = r.URL.Query().Get("date_from")
		p.lastTo = r.URL.Query().Get("date_to")
		if p.dataStatus != 0 {
			w.WriteHeader(p.dataStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body := p.dataBody
		if body == "" {
			body = `[]`
		}
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, stub *providerStub) *Client {
	t.Helper()
	srv := stub.server(t)
	return NewClient(config.ExternalAPIConfig{
		BaseURL:        srv.URL,
		Username:       "user",
		Password:       "secret",
		TimeoutSeconds: 5,
	})
}

func TestFetchReadings_LoginAndFetch(t *testing.T) {
	stub := &providerStub{dataBody: `[{"timestamp": "2025-09-20T01:00:00Z", "price": 10.5}]`}
	client := newTestClient(t, stub)

	from := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC)
	readings, err := client.FetchReadings(context.Background(), from, to)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(readings) != 1 || readings[0].Price != 10.5 {
		t.Fatalf("unexpected readings: %+v", readings)
	}
	if stub.lastAuth != "Bearer bearer-token" {
		t.Fatalf("authorization = %q", stub.lastAuth)
	}
	if stub.lastFrom != "2025-09-20" || stub.lastTo != "2025-09-21" {
		t.Fatalf("query window = %q..%q", stub.lastFrom, stub.lastTo)
	}
}

func TestFetchReadings_TokenCachedAcrossCalls(t *testing.T) {
	stub := &providerStub{}
	client := newTestClient(t, stub)

	from := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	for i := 0; i < 3; i++ {
		if _, err := client.FetchReadings(context.Background(), from, to); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&stub.loginCalls); got != 1 {
		t.Fatalf("login calls = %d, want 1", got)
	}
}

func TestFetchReadings_TokenFieldVariant(t *testing.T) {
	stub := &providerStub{tokenField: "token"}
	client := newTestClient(t, stub)

	from := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	if _, err := client.FetchReadings(context.Background(), from, from.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("fetch with token field variant: %v", err)
	}
	if stub.lastAuth != "Bearer bearer-token" {
		t.Fatalf("authorization = %q", stub.lastAuth)
	}
}

func TestFetchReadings_LoginFailure(t *testing.T) {
	stub := &providerStub{tokenStatus: http.StatusUnauthorized}
	client := newTestClient(t, stub)

	from := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	_, err := client.FetchReadings(context.Background(), from, from.AddDate(0, 0, 1))
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("want ServiceError, got %v", err)
	}
	if svcErr.Op != "login" {
		t.Fatalf("op = %q, want login", svcErr.Op)
	}
}

func TestFetchReadings_UpstreamErrorStatus(t *testing.T) {
	stub := &providerStub{dataStatus: http.StatusInternalServerError}
	client := newTestClient(t, stub)

	from := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	_, err := client.FetchReadings(context.Background(), from, from.AddDate(0, 0, 1))
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("want ServiceError, got %v", err)
	}
	if svcErr.Op != "fetch" {
		t.Fatalf("op = %q, want fetch", svcErr.Op)
	}
}

func TestFetchReadings_UnauthorizedInvalidatesToken(t *testing.T) {
	stub := &providerStub{dataStatus: http.StatusUnauthorized}
	client := newTestClient(t, stub)

	from := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	if _, err := client.FetchReadings(context.Background(), from, to); err == nil {
		t.Fatalf("want error on 401")
	}
	stub.dataStatus = 0
	if _, err := client.FetchReadings(context.Background(), from, to); err != nil {
		t.Fatalf("fetch after recovery: %v", err)
	}
	// The rejected token was dropped, so the second fetch logged in again.
	if got := atomic.LoadInt32(&stub.loginCalls); got != 2 {
		t.Fatalf("login calls = %d, want 2", got)
	}
}

func TestFetchReadings_MalformedPayload(t *testing.T) {
	stub := &providerStub{dataBody: `{"data": 42}`}
	client := newTestClient(t, stub)

	from := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	_, err := client.FetchReadings(context.Background(), from, from.AddDate(0, 0, 1))
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("want ServiceError, got %v", err)
	}
	if svcErr.Op != "parse" {
		t.Fatalf("op = %q, want parse", svcErr.Op)
	}
}
