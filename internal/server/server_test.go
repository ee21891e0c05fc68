package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/aidanlsb/tabula/internal/export"
	"github.com/aidanlsb/tabula/internal/index"
	"github.com/aidanlsb/tabula/internal/query"
	"github.com/aidanlsb/tabula/internal/testutil"
)

const serverDataset = `
databases:
  - id: 1
    tenant_id: 7
    name: CRM
    tables:
      - id: 10
        name: People
        columns:
          - {id: 100, name: Name, type: string, primary: true}
          - {id: 101, name: Age, type: number, order: 1}
        rows:
          - {id: 1, cells: {100: Ada, 101: 25}}
          - {id: 2, cells: {100: Bob, 101: 35}}
`

var testNow = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *index.Database
	clock *clockwork.FakeClock
	opts  Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewStore(t, serverDataset)
	clock := clockwork.NewFakeClockAt(testNow)
	compiler := query.NewCompiler(query.Options{Clock: clock, WeekStart: time.Monday})
	return &fixture{
		db:    db,
		clock: clock,
		opts: Options{
			Exporter: export.New(db, compiler, export.Options{}),
			Store:    db,
			Clock:    clock,
		},
	}
}

func (f *fixture) do(t *testing.T, opts Options, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "192.0.2.1:4000"
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	New(opts).Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%q)", err, rec.Body.String())
	}
	return body
}

const exportURL = "/api/tenants/7/databases/1/tables/10/export"

func TestExportSuccess(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, f.opts, exportURL, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "Name;Age\n\"Ada\";25\n\"Bob\";35" {
		t.Fatalf("body = %q", got)
	}

	h := rec.Header()
	if h.Get("Content-Type") != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", h.Get("Content-Type"))
	}
	if h.Get("Content-Disposition") != `attachment; filename="table_10_export_2025-03-12.csv"` {
		t.Errorf("Content-Disposition = %q", h.Get("Content-Disposition"))
	}
	if h.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q", h.Get("Cache-Control"))
	}
	if h.Get(IgnoredFiltersHeader) != "0" {
		t.Errorf("%s = %q", IgnoredFiltersHeader, h.Get(IgnoredFiltersHeader))
	}
	if h.Get(RequestIDHeader) == "" {
		t.Error("expected a request id")
	}
}

func TestExportFilteredAndIgnored(t *testing.T) {
	f := newFixture(t)

	q := url.Values{"filters": {`[
		{"columnId":101,"columnType":"number","operator":"greater_than","value":"30"},
		{"columnId":999,"columnType":"string","operator":"equals","value":"x"}
	]`}}
	target := exportURL + "?" + q.Encode()
	rec := f.do(t, f.opts, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "Name;Age\n\"Bob\";35" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if rec.Header().Get(IgnoredFiltersHeader) != "1" {
		t.Fatalf("%s = %q", IgnoredFiltersHeader, rec.Header().Get(IgnoredFiltersHeader))
	}
}

func TestExportMalformedFiltersSucceed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, f.opts, exportURL+"?filters=%7Bnot-json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Count(rec.Body.String(), "\n") != 2 {
		t.Fatalf("expected the unfiltered export, got %q", rec.Body.String())
	}
	if rec.Header().Get(IgnoredFiltersHeader) != "1" {
		t.Fatalf("%s = %q", IgnoredFiltersHeader, rec.Header().Get(IgnoredFiltersHeader))
	}
}

func TestExportErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unsupported format", exportURL + "?format=xlsx", http.StatusBadRequest, CodeValidation},
		{"bad table id", "/api/tenants/7/databases/1/tables/abc/export", http.StatusBadRequest, CodeValidation},
		{"unknown table", "/api/tenants/7/databases/1/tables/11/export", http.StatusNotFound, CodeNotFound},
		{"foreign tenant", "/api/tenants/8/databases/1/tables/10/export", http.StatusNotFound, CodeNotFound},
		{"unknown route", "/api/nothing", http.StatusNotFound, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, f.opts, tt.target, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%q)", rec.Code, tt.status, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Code != tt.code || body.Error == "" {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

func TestExportFormatErrorDetails(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, f.opts, exportURL+"?format=xlsx", nil)
	var body struct {
		Details struct {
			Supported []string `json:"supported"`
		} `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Details.Supported) != 1 || body.Details.Supported[0] != "csv" {
		t.Fatalf("details = %+v", body.Details)
	}
}

func TestExportRequiresToken(t *testing.T) {
	f := newFixture(t)
	auth := NewAuthorizer("s3cret", f.clock).(*TokenAuthorizer)
	opts := f.opts
	opts.Authorizer = auth

	issue := func(role string, tenants []int64, ttl time.Duration) http.Header {
		token, err := auth.Issue("ada", role, tenants, ttl)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return http.Header{"Authorization": {"Bearer " + token}}
	}

	tests := []struct {
		name   string
		header http.Header
		status int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"wrong scheme", http.Header{"Authorization": {"Basic abc"}}, http.StatusUnauthorized},
		{"garbage token", http.Header{"Authorization": {"Bearer abc"}}, http.StatusUnauthorized},
		{"expired", issue("", []int64{7}, -time.Minute), http.StatusUnauthorized},
		{"other tenant", issue("", []int64{8}, time.Hour), http.StatusForbidden},
		{"granted tenant", issue("", []int64{7}, time.Hour), http.StatusOK},
		{"admin", issue(RoleAdmin, nil, time.Hour), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, opts, exportURL, tt.header)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%q)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	other := NewAuthorizer("other", clock).(*TokenAuthorizer)
	token, err := other.Issue("ada", RoleAdmin, nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	auth := NewAuthorizer("s3cret", clock).(*TokenAuthorizer)
	if _, err := auth.Verify(token); err == nil {
		t.Fatal("expected verification to fail")
	}
}

func TestNewAuthorizerWithoutSecretAllowsAll(t *testing.T) {
	if _, ok := NewAuthorizer("  ", nil).(AllowAll); !ok {
		t.Fatal("empty secret should disable authentication")
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t)
	opts := f.opts
	opts.RateLimitPerMinute = 1
	opts.RateLimitBurst = 2
	h := New(opts).Handler()

	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.RemoteAddr = "192.0.2.1:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := get(exportURL); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := get(exportURL)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if decodeError(t, rec).Code != CodeRateLimited {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}

	// Health checks are never limited.
	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	f.clock.Advance(2 * time.Minute)
	if rec := get(exportURL); rec.Code != http.StatusOK {
		t.Fatalf("after refill: status %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	rl := newRateLimiter(60, 1, clock)
	rl.allow("192.0.2.1")
	clock.Advance(time.Hour)
	rl.allow("192.0.2.2")

	rl.cleanup(10 * time.Minute)
	if len(rl.limiters) != 1 {
		t.Fatalf("expected one fresh entry, got %d", len(rl.limiters))
	}
	if newRateLimiter(0, 5, clock) != nil {
		t.Fatal("zero rate should disable limiting")
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, f.opts, "/healthz", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("status %d, body %q", rec.Code, rec.Body.String())
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk on fire") }

func TestHealthStoreFailure(t *testing.T) {
	f := newFixture(t)
	opts := f.opts
	opts.Store = failingPinger{}

	rec := f.do(t, opts, "/healthz", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != CodeInternal || strings.Contains(body.Error, "disk") {
		t.Fatalf("internal details must not leak: %+v", body)
	}
}

func TestRequestIDIsReused(t *testing.T) {
	f := newFixture(t)
	id := "8f14e45f-ceea-467f-a0e6-1a2b3c4d5e6f"

	rec := f.do(t, f.opts, "/healthz", http.Header{RequestIDHeader: {id}})
	if rec.Header().Get(RequestIDHeader) != id {
		t.Fatalf("request id = %q", rec.Header().Get(RequestIDHeader))
	}

	rec = f.do(t, f.opts, "/healthz", http.Header{RequestIDHeader: {"not-a-uuid"}})
	if got := rec.Header().Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Fatalf("malformed ids must be replaced, got %q", got)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(f.opts).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
