package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskline/internal/db"
	"taskline/internal/domain"
	"taskline/internal/migrate"
	"taskline/internal/service"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Svc    service.Service
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc := service.New(conn, nil)
	handler, err := New(Config{
		Service:  svc,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: testJWTSecret, AllowLegacyUserHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Svc:    svc,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func seedUser(t *testing.T, svc service.Service, username string) domain.User {
	t.Helper()
	u := domain.User{
		ID:        "user-" + username,
		Username:  username,
		Email:     username + "@example.com",
		Name:      username,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := svc.Repo.InsertUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func asUser(userID string) map[string]string {
	return map[string]string{"X-User-Id": userID}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestHealthIsUnauthenticated(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}

func TestMissingAuthIsRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/tasks", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if envelope.Success {
		t.Fatalf("error envelope must carry success=false")
	}
}

func TestJWTBearerAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	u := seedUser(t, srv.Svc, "alice")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me MeResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if !me.Success || me.User.ID != u.ID {
		t.Fatalf("unexpected me payload: %+v", me)
	}
}

func TestListLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	alice := seedUser(t, srv.Svc, "alice")
	bob := seedUser(t, srv.Svc, "bob")
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/collab_lists", map[string]any{
		"name": "Groceries",
	}, asUser(alice.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create list status %d: %s", res.StatusCode, string(data))
	}
	var created ListResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if !created.Success || created.List.Name != "Groceries" {
		t.Fatalf("unexpected create payload: %s", string(data))
	}
	listID := created.List.ID

	// invite bob
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/collab_lists/"+listID+"/members", map[string]any{
		"username_or_email": "bob",
	}, asUser(alice.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add member status %d: %s", res.StatusCode, string(data))
	}

	// duplicate invite conflicts
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/collab_lists/"+listID+"/members", map[string]any{
		"username_or_email": "bob",
	}, asUser(alice.ID))
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate invite status %d: %s", res.StatusCode, string(data))
	}

	// member rename is forbidden with the owner-specific message
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/collab_lists/"+listID, map[string]any{
		"name": "Hijacked",
	}, asUser(bob.ID))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("member rename status %d: %s", res.StatusCode, string(data))
	}
	var forbidden struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &forbidden)
	if forbidden.Message != "only the owner can perform this action" {
		t.Fatalf("unexpected forbidden message: %q", forbidden.Message)
	}

	// detail shows owner first
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/collab_lists/"+listID, nil, asUser(bob.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get list status %d: %s", res.StatusCode, string(data))
	}
	var detail ListDetailResponse
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if len(detail.Members) != 2 || detail.Members[0].Role != "owner" {
		t.Fatalf("expected owner-first roster of 2: %s", string(data))
	}
	if detail.List.OwnerID != alice.ID {
		t.Fatalf("expected alice as owner, got %s", detail.List.OwnerID)
	}

	// owner deletes
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/collab_lists/"+listID, nil, asUser(alice.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete list status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/collab_lists/"+listID, nil, asUser(alice.ID))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted list should 404, got %d", res.StatusCode)
	}
}

func TestTaskFlowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	alice := seedUser(t, srv.Svc, "alice")
	bob := seedUser(t, srv.Svc, "bob")
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"title": "Write report",
	}, asUser(alice.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created TaskResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.Task.Priority != "Medium" || created.Task.Status != "pending" {
		t.Fatalf("expected defaults, got %s/%s", created.Task.Priority, created.Task.Status)
	}
	taskID := created.Task.ID

	// another user cannot see a personal task
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/"+taskID, nil, asUser(bob.ID))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("personal task should be forbidden to others, got %d", res.StatusCode)
	}

	// empty update is a 400 no-op
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/tasks/"+taskID, map[string]any{}, asUser(alice.ID))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty update status %d: %s", res.StatusCode, string(data))
	}

	// status shortcut
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/tasks/"+taskID+"/status", map[string]any{
		"status": "completed",
	}, asUser(alice.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set status %d: %s", res.StatusCode, string(data))
	}
	var updated TaskResponse
	_ = json.Unmarshal(data, &updated)
	if updated.Task.Status != "completed" {
		t.Fatalf("expected completed, got %s", updated.Task.Status)
	}

	// archive hides from default listing
	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+taskID+"/archive", nil, asUser(alice.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("archive status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks", nil, asUser(alice.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list tasks status %d", res.StatusCode)
	}
	var listing TasksResponse
	_ = json.Unmarshal(data, &listing)
	if listing.Count != 0 {
		t.Fatalf("archived task should be hidden, got %d", listing.Count)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks?archived_only=true", nil, asUser(alice.ID))
	_ = json.Unmarshal(data, &listing)
	if res.StatusCode != http.StatusOK || listing.Count != 1 {
		t.Fatalf("archived_only should return the task: %d %s", res.StatusCode, string(data))
	}

	// delete
	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/tasks/"+taskID, nil, asUser(alice.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/"+taskID, nil, asUser(alice.ID))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted task should 404, got %d", res.StatusCode)
	}
}
