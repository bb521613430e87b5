package langfuse

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cupidlabs/cupid-backend/internal/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:   srv.URL,
		PublicKey: "pk-test",
		SecretKey: "sk-test",
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://cloud.langfuse.com"}, logger.NewNop())
	if err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}

func TestGetTracesSendsAuthAndParams(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, `{"data":[{"id":"tr-1"}],"meta":{"page":2,"limit":100,"totalItems":101,"totalPages":2}}`)
	})
	client, _ := newTestClient(t, handler)

	page, err := client.GetTraces(context.Background(), TraceQuery{
		Limit:         100,
		Page:          2,
		FromTimestamp: "2026-08-30T00:00:00Z",
		OrderBy:       "timestamp.asc",
	})
	if err != nil {
		t.Fatalf("GetTraces: %v", err)
	}

	if gotPath != "/api/public/traces" {
		t.Fatalf("path: got=%q", gotPath)
	}
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("pk-test:sk-test"))
	if gotAuth != wantAuth {
		t.Fatalf("auth header: got=%q", gotAuth)
	}
	if gotQuery["limit"] != "100" || gotQuery["page"] != "2" {
		t.Fatalf("pagination params: got=%v", gotQuery)
	}
	if gotQuery["fromTimestamp"] != "2026-08-30T00:00:00Z" {
		t.Fatalf("fromTimestamp: got=%q", gotQuery["fromTimestamp"])
	}
	if gotQuery["orderBy"] != "timestamp.asc" {
		t.Fatalf("orderBy: got=%q", gotQuery["orderBy"])
	}
	if _, ok := gotQuery["sessionId"]; ok {
		t.Fatalf("empty sessionId should be omitted")
	}

	if len(page.Data) != 1 || page.Data[0]["id"] != "tr-1" {
		t.Fatalf("page data: got=%v", page.Data)
	}
	if page.Meta.TotalPages != 2 {
		t.Fatalf("total pages: got=%d", page.Meta.TotalPages)
	}
}

func TestRequestRetriesThenSucceeds(t *testing.T) {
	var attempts int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[],"meta":{"page":1,"limit":1,"totalItems":0,"totalPages":0}}`)
	})
	client, _ := newTestClient(t, handler)

	if _, err := client.GetSessions(context.Background(), 1, 1); err != nil {
		t.Fatalf("GetSessions after retry: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts: want=2 got=%d", attempts)
	}
}

func TestRequestExhaustsRetries(t *testing.T) {
	var attempts int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.GetSessions(context.Background(), 1, 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if attempts != maxRetries {
		t.Fatalf("attempts: want=%d got=%d", maxRetries, attempts)
	}
}

func TestRequestRateLimitHonorsContextCancel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	client, _ := newTestClient(t, handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetSessions(ctx, 1, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestRequestNonOKStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.GetSessions(context.Background(), 1, 1)
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatalf("500 must not map to ErrRateLimited")
	}
}

func TestCheckConnection(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[],"meta":{}}`)
	})
	client, _ := newTestClient(t, ok)
	if !client.CheckConnection(context.Background()) {
		t.Fatalf("CheckConnection should succeed")
	}

	bad := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	client, _ = newTestClient(t, bad)
	if client.CheckConnection(context.Background()) {
		t.Fatalf("CheckConnection should fail")
	}
}
