package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reminder/internal/apiserver/auth"
	"reminder/internal/shared/storage"
	"reminder/internal/shared/storage/memstore"
	"reminder/pkg/logging"
)

type testServer struct {
	*httptest.Server
	gw      *memstore.Store
	metrics *Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gw := memstore.New(memstore.WithUniqueIndex(storage.ColUsers, "username"))
	metrics := NewMetrics("reminder_test")
	logger := logging.Discard()

	h, err := NewHandler(Deps{
		Gateway: storage.Instrument(gw, NewQueryHook(metrics, logger)),
		Auth:    auth.Config{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost},
		Metrics: metrics,
		Logger:  logger,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, gw: gw, metrics: metrics}
}

func (s *testServer) request(t *testing.T, method, path, token, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

// signUpAndLogin 注册并通过表单登录，返回访问令牌
func (s *testServer) signUpAndLogin(t *testing.T, username string) string {
	t.Helper()
	code, body := s.request(t, http.MethodPost, "/auth/signup", "",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, code, body)

	form := url.Values{"username": {username}, "password": {"correct horse"}}
	resp, err := s.Client().PostForm(s.URL+"/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	assert.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

const eventBody = `{"name":"launch","description":"","tags":[],"time_details":{"start_time":"2024-07-01T12:00:00Z","end_time":"2024-07-01T13:00:00Z","all_day":false},"presentation":{"color":"green"}}`

func TestEndToEnd_OwnershipIsolation(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUpAndLogin(t, "alice")
	bob := srv.signUpAndLogin(t, "bob")

	code, body := srv.request(t, http.MethodPost, "/events/", alice, eventBody)
	require.Equal(t, http.StatusOK, code, body)
	var ev struct {
		ID      string `json:"id"`
		OwnerID string `json:"owner_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &ev))

	code, body = srv.request(t, http.MethodGet, "/users/me/", alice, "")
	require.Equal(t, http.StatusOK, code)
	var me struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &me))
	assert.Equal(t, me.ID, ev.OwnerID)
	assert.NotContains(t, body, "hashed_password")

	code, _ = srv.request(t, http.MethodGet, "/events/"+ev.ID, alice, "")
	assert.Equal(t, http.StatusOK, code)

	code, body = srv.request(t, http.MethodGet, "/events/"+ev.ID, bob, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, "Item not found")

	code, _ = srv.request(t, http.MethodDelete, "/events/"+ev.ID, bob, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = srv.request(t, http.MethodGet, "/events/", bob, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, body)

	code, _ = srv.request(t, http.MethodPost, "/events/"+ev.ID+"/constraint/color", alice, `{"color":"#D60404"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestEndToEnd_Unauthorized(t *testing.T) {
	srv := newTestServer(t)

	code, body := srv.request(t, http.MethodGet, "/events/", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body, "Could not validate credentials")

	code, _ = srv.request(t, http.MethodGet, "/events/", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = srv.request(t, http.MethodPost, "/token", "", `{"username":"nobody","password":"whatever1"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body, "Incorrect username or password")

	_, metrics := srv.request(t, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, metrics, `reminder_test_auth_failures_total{reason="missing_token"} 1`)
	assert.Contains(t, metrics, `reminder_test_auth_failures_total{reason="invalid_token"} 1`)
}

func TestEndToEnd_DuplicateSignUp(t *testing.T) {
	srv := newTestServer(t)
	srv.signUpAndLogin(t, "carol")

	code, body := srv.request(t, http.MethodPost, "/auth/signup", "",
		`{"username":"carol","email":"other@example.com","password":"another pass"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body, "Item already exists")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	code, body := srv.request(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","store":"ok"}`, body)

	srv.gw.SetDown(true)
	code, body = srv.request(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "unavailable")
}

func TestStoreDown_Returns503(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUpAndLogin(t, "dave")

	srv.gw.SetDown(true)
	code, body := srv.request(t, http.MethodGet, "/events/", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, body, "memstore")
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderRequestID, "trace-123")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-123", resp.Header.Get(HeaderRequestID))

	resp, err = srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, strings.HasPrefix(resp.Header.Get(HeaderRequestID), "req-"))
}

func TestMetrics_DBQueries(t *testing.T) {
	srv := newTestServer(t)
	srv.signUpAndLogin(t, "erin")

	_, body := srv.request(t, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, body, `reminder_test_db_queries_total{collection="users",operation="insert_one"} 1`)
	assert.Contains(t, body, `reminder_test_http_requests_total{method="POST",path="/auth/signup",status="200"} 1`)
}

func TestMetrics_DBQueryErrors(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUpAndLogin(t, "frank")

	// 注册前的用户名查重与 404 都是未命中，不计入错误
	code, _ := srv.request(t, http.MethodGet, "/events/65f1c0ffee0000000000abcd", token, "")
	require.Equal(t, http.StatusNotFound, code)
	code, _ = srv.request(t, http.MethodPost, "/auth/signup", "",
		`{"username":"frank","email":"frank@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusConflict, code)

	assert.Greater(t, testutil.ToFloat64(srv.metrics.DBQueryTotal.WithLabelValues("find_one", "users")), float64(0))
	assert.Equal(t, float64(0), testutil.ToFloat64(srv.metrics.DBQueryErrors.WithLabelValues("find_one", "users")))
	assert.Equal(t, float64(0), testutil.ToFloat64(srv.metrics.DBQueryErrors.WithLabelValues("find_one", "events")))

	srv.gw.SetDown(true)
	code, _ = srv.request(t, http.MethodGet, "/events/", token, "")
	require.Equal(t, http.StatusServiceUnavailable, code)
	// 认证阶段的用户查询先失败
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.DBQueryErrors.WithLabelValues("find_one", "users")))
}

func TestGenerateID(t *testing.T) {
	a, b := generateID("req"), generateID("req")
	assert.Regexp(t, `^req-[0-9a-f]{12}$`, a)
	assert.NotEqual(t, a, b)
}

func TestRouteLabel(t *testing.T) {
	mux := http.NewServeMux()
	noop := func(http.ResponseWriter, *http.Request) {}
	mux.HandleFunc("GET /health", noop)
	mux.HandleFunc("GET /events/{$}", noop)
	mux.HandleFunc("GET /events/{event_id}", noop)
	mux.HandleFunc("GET /events/{event_id}/tags", noop)
	mux.HandleFunc("POST /events/{event_id}/constraint/{kind}", noop)
	mux.HandleFunc("DELETE /events/{event_id}/constraint/{constraint_id}", noop)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/events/", "/events/"},
		{http.MethodGet, "/events/65f1c0ffee0000000000abcd", "/events/{event_id}"},
		{http.MethodGet, "/events/65f1c0ffee0000000000abcd/tags", "/events/{event_id}/tags"},
		{http.MethodPost, "/events/65f1/constraint/color", "/events/{event_id}/constraint/{kind}"},
		{http.MethodDelete, "/events/65f1/constraint/65a0", "/events/{event_id}/constraint/{constraint_id}"},
		{http.MethodGet, "/health", "/health"},
		{http.MethodGet, "/scan-1/x", unmatchedRoute},
		{http.MethodGet, "/events/abc/junk-1", unmatchedRoute},
		{http.MethodPut, "/health", unmatchedRoute},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		assert.Equal(t, tt.want, routeLabel(mux, req), tt.method+" "+tt.path)
	}
}

func TestMetrics_PathLabelBounded(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 50; i++ {
		srv.request(t, fmt.Sprintf("SCAN%d", i), "/events/", "", "")
		srv.request(t, http.MethodGet, fmt.Sprintf("/scan-%d/x", i), "", "")
		srv.request(t, http.MethodGet, fmt.Sprintf("/events/abc/junk-%d", i), "", "")
		srv.request(t, http.MethodGet, fmt.Sprintf("/events/%024d/tags", i), "", "")
	}

	// 未匹配路由归为 other，匹配路由按模式归类，未知方法归为 OTHER
	assert.Equal(t, 3, testutil.CollectAndCount(srv.metrics.HTTPRequestsTotal))
	_, body := srv.request(t, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, body, `reminder_test_http_requests_total{method="GET",path="other",status="401"} 100`)
	assert.Contains(t, body, `reminder_test_http_requests_total{method="GET",path="/events/{event_id}/tags",status="401"} 50`)
	assert.Contains(t, body, `reminder_test_http_requests_total{method="OTHER",path="other",status="401"} 50`)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	code, _ := srv.request(t, http.MethodOptions, "/events/", "", "")
	assert.Equal(t, http.StatusOK, code)
}
