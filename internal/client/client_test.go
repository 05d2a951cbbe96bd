package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/your-username/click-lite-reports/internal/models"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:       server.URL,
		AuthServerURL: "https://auth.example.com",
		PublicURL:     "https://reports.example.com",
		Timeout:       time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without base URL")
	}
}

func TestPreview_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/reports/preview" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req models.PreviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SQLQuery != "SELECT 1" || req.Limit != 50 {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"columns":["x"],"data":[[1]],"total_rows":1,"execution_time_ms":3,"success":true}`))
	}))
	defer server.Close()

	res, err := newTestClient(t, server).Preview(context.Background(), "SELECT 1", 50)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if !res.Success || res.TotalRows != 1 || res.Columns[0] != "x" {
		t.Errorf("result = %+v", res)
	}
}

func TestPreview_FailedQueryIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"columns":[],"data":[],"success":false,"message":"Unknown table"}`))
	}))
	defer server.Close()

	res, err := newTestClient(t, server).Preview(context.Background(), "SELECT * FROM nope", 10)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if res.Success || res.Message != "Unknown table" {
		t.Errorf("result = %+v", res)
	}
}

func TestDo_UnauthorizedRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	ctx := WithReturnURL(context.Background(), "https://reports.example.com/dashboards/3")
	_, err := newTestClient(t, server).ListDashboards(ctx)

	var redirect *AuthRedirectError
	if !errors.As(err, &redirect) {
		t.Fatalf("expected AuthRedirectError, got %v", err)
	}
	want := "https://auth.example.com/login?redirect=" + url.QueryEscape("https://reports.example.com/dashboards/3")
	if redirect.LoginURL != want {
		t.Errorf("LoginURL = %q, want %q", redirect.LoginURL, want)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("expected errors.Is(err, ErrUnauthorized)")
	}
}

func TestDo_HTTPErrorCarriesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dashboard not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).GetDashboard(context.Background(), 9)
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if herr.Status != http.StatusNotFound || herr.Body != "dashboard not found\n" {
		t.Errorf("HTTPError = %+v", herr)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound() = false")
	}
}

func TestDo_TextAndEmptyBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("pong"))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()
	c := newTestClient(t, server)

	var text string
	if err := c.Do(context.Background(), http.MethodGet, "/text", nil, &text); err != nil {
		t.Fatalf("text: %v", err)
	}
	if text != "pong" {
		t.Errorf("text = %q", text)
	}

	var anything interface{} = "unchanged"
	if err := c.Do(context.Background(), http.MethodDelete, "/empty", nil, &anything); err != nil {
		t.Fatalf("empty: %v", err)
	}
	if anything != "unchanged" {
		t.Errorf("empty body should not touch out, got %v", anything)
	}
}

func TestDo_ForwardsCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "opaque-session" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ctx := WithCookies(context.Background(), []*http.Cookie{{Name: "session", Value: "opaque-session"}})
	if err := newTestClient(t, server).DeleteDashboard(ctx, 1); err != nil {
		t.Fatalf("DeleteDashboard() error = %v", err)
	}
}

func TestDo_ExpiredSessionSkipsRoundTrip(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ctx := WithCookies(context.Background(), []*http.Cookie{{Name: "session", Value: expired}})
	_, err = newTestClient(t, server).ListReports(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if called {
		t.Error("backend should not be called with an expired session")
	}
}

func TestReports_CreateThenUpdate(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"id":42,"name":"Sales"}`))
		case http.MethodPut:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()
	c := newTestClient(t, server)

	report := &models.ReportConfig{ID: "tmp-1", Name: "Sales"}
	id, err := c.CreateReport(context.Background(), report)
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d", id)
	}
	report.RemoteID = id
	if err := c.UpdateReport(context.Background(), report); err != nil {
		t.Fatalf("UpdateReport() error = %v", err)
	}

	want := []string{"POST /api/reports", "PUT /api/reports/42"}
	if len(methods) != 2 || methods[0] != want[0] || methods[1] != want[1] {
		t.Errorf("calls = %v, want %v", methods, want)
	}
}

func TestSetFavorite(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
	}))
	defer server.Close()
	c := newTestClient(t, server)

	if err := c.SetFavorite(context.Background(), 7, true); err != nil {
		t.Fatal(err)
	}
	if err := c.SetFavorite(context.Background(), 7, false); err != nil {
		t.Fatal(err)
	}
	if got[0] != "POST /api/dashboards/7/favorite" || got[1] != "DELETE /api/dashboards/7/favorite" {
		t.Errorf("calls = %v", got)
	}
}
