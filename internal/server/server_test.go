package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"planner/internal/auth"
	"planner/internal/blob"
	"planner/internal/common"
	"planner/internal/logging"
	"planner/internal/models"
	"planner/internal/planner"
	"planner/internal/storage/sqlite"
	"planner/internal/users"
)

type testEnv struct {
	srv   *Server
	store *sqlite.Store
	dir   string
}

func newTestEnv(t *testing.T, staticDir string) testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	logger := logging.Discard()

	store, err := sqlite.Open(ctx, filepath.Join(dir, "planner.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs, err := blob.NewFSStore(filepath.Join(dir, "blobs"), "/api/blobs")
	require.NoError(t, err)

	repo := users.NewMemoryRepository()
	userSvc := users.NewService(repo, repo, blobs, bcrypt.MinCost, logger)
	_, err = userSvc.Seed(ctx, users.DefaultSeed)
	require.NoError(t, err)

	srv := New(Options{
		Users:      userSvc,
		Planner:    planner.NewService(store, blobs, logger),
		Slots:      store,
		Tokens:     auth.NewIssuer("test-secret", time.Hour),
		Logger:     logger,
		Blobs:      blobs,
		ServeBlobs: true,
		StaticDir:  staticDir,
		Health:     store.Ping,
	})
	return testEnv{srv: srv, store: store, dir: dir}
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	headers map[string]string
}

func (e testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	switch b := r.body.(type) {
	case nil:
	case string:
		body.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&body).Encode(b))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func (e testEnv) upload(t *testing.T, method, path, token, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func (e testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: credentialsRequest{username, password}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, request{method: http.MethodGet, path: "/api/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: credentialsRequest{"admin", "admin123"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool              `json:"success"`
		User    models.PublicUser `json:"user"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, models.PublicUser{ID: "1", Username: "admin", IsAdmin: true}, resp.User)
	assert.NotContains(t, rec.Body.String(), "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: credentialsRequest{"admin", "wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid credentials"}`, rec.Body.String())

	rec = e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: credentialsRequest{"ghost", "admin123"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionCookie(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: credentialsRequest{"user", "user123"}})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
	assert.JSONEq(t, `{"authenticated":true,"isAdmin":false}`, out.Body.String())
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: credentialsRequest{"carol", "secret"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		User    struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "carol", resp.User.Username)
	assert.NotEmpty(t, resp.User.ID)

	rec = e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: credentialsRequest{"carol", "other"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Username already exists"}`, rec.Body.String())

	rec = e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: credentialsRequest{"", "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.login(t, "carol", "secret")
}

func TestRegisterPasswordLength(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: credentialsRequest{"dave", strings.Repeat("a", 80)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Password must be at most 72 bytes"}`, rec.Body.String())

	longest := strings.Repeat("a", users.MaxPasswordBytes)
	rec = e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: credentialsRequest{"dave", longest}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e.login(t, "dave", longest)

	token := e.login(t, "admin", "admin123")
	rec = e.do(t, request{method: http.MethodPut, path: "/api/admin/users?id=2", token: token, body: map[string]any{"password": strings.Repeat("b", 73)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 72 bytes")
}

func TestRegisterTrimsUsername(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: credentialsRequest{" admin", "pw"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Username already exists"}`, rec.Body.String())

	rec = e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: credentialsRequest{" erin ", "pw"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"erin"`)
	e.login(t, "erin", "pw")
}

func TestCheck(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, request{method: http.MethodGet, path: "/api/auth/check"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	rec = e.do(t, request{method: http.MethodGet, path: "/api/auth/check", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := e.login(t, "admin", "admin123")
	rec = e.do(t, request{method: http.MethodGet, path: "/api/auth/check", token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":true,"isAdmin":true}`, rec.Body.String())
}

func TestAdminRequiresAdmin(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, request{method: http.MethodGet, path: "/api/admin/users"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := e.login(t, "user", "user123")
	rec = e.do(t, request{method: http.MethodGet, path: "/api/admin/users", token: token})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminUsers(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "admin", "admin123")

	rec := e.do(t, request{method: http.MethodGet, path: "/api/admin/users", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.PublicUser
	decode(t, rec, &list)
	assert.Len(t, list, 2)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(t, request{method: http.MethodPut, path: "/api/admin/users?id=2", token: token, body: map[string]any{"isAdmin": true}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Success bool              `json:"success"`
		User    models.PublicUser `json:"user"`
	}
	decode(t, rec, &updated)
	assert.True(t, updated.Success)
	assert.True(t, updated.User.IsAdmin)

	rec = e.do(t, request{method: http.MethodPut, path: "/api/admin/users?id=2", token: token, body: map[string]any{"username": "admin"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{method: http.MethodDelete, path: "/api/admin/users?id=999", token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"User not found"}`, rec.Body.String())

	rec = e.do(t, request{method: http.MethodDelete, path: "/api/admin/users", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{method: http.MethodDelete, path: "/api/admin/users?id=2", token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestRevokedAdminLosesAccess(t *testing.T) {
	e := newTestEnv(t, "")
	adminToken := e.login(t, "admin", "admin123")

	rec := e.do(t, request{method: http.MethodPut, path: "/api/admin/users?id=2", token: adminToken, body: map[string]any{"isAdmin": true}})
	require.Equal(t, http.StatusOK, rec.Code)
	userToken := e.login(t, "user", "user123")

	rec = e.do(t, request{method: http.MethodPut, path: "/api/admin/users?id=2", token: adminToken, body: map[string]any{"isAdmin": false}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/admin/users", token: userToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, request{method: http.MethodPatch, path: "/api/auth/login"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))

	for _, m := range []string{http.MethodHead, http.MethodOptions, http.MethodGet} {
		rec = e.do(t, request{method: m, path: "/api/auth/login"})
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, m)
		assert.Equal(t, "POST", rec.Header().Get("Allow"), m)
	}

	token := e.login(t, "admin", "admin123")
	rec = e.do(t, request{method: http.MethodPost, path: "/api/admin/users", token: token})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "DELETE, GET, HEAD, PUT", rec.Header().Get("Allow"))
	rec = e.do(t, request{method: http.MethodOptions, path: "/api/admin/users", token: token})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMethodNotAllowedWithoutSession(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, request{method: http.MethodPatch, path: "/api/projects"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD, POST", rec.Header().Get("Allow"))

	rec = e.do(t, request{method: http.MethodPost, path: "/api/admin/users"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "DELETE, GET, HEAD, PUT", rec.Header().Get("Allow"))

	rec = e.do(t, request{method: http.MethodOptions, path: "/api/slots/tasks"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD, PUT", rec.Header().Get("Allow"))

	rec = e.do(t, request{method: http.MethodGet, path: "/api/projects"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeadFollowsGet(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, request{method: http.MethodHead, path: "/api/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, request{method: http.MethodHead, path: "/api/board"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectsRequireSession(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, request{method: http.MethodGet, path: "/api/projects"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectLifecycle(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")

	rec := e.do(t, request{method: http.MethodPost, path: "/api/projects", token: token, body: map[string]any{"name": "Website"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))
	var created struct {
		Project models.Project `json:"project"`
	}
	decode(t, rec, &created)
	id := created.Project.ID

	rec = e.do(t, request{method: http.MethodPost, path: "/api/projects", token: token, body: map[string]any{"name": "  "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{
		method: http.MethodPut, path: "/api/projects/" + id, token: token,
		body:    map[string]any{"progress": 40},
		headers: map[string]string{"If-Match": `"1"`},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))

	rec = e.do(t, request{
		method: http.MethodPut, path: "/api/projects/" + id, token: token,
		body:    map[string]any{"progress": 50},
		headers: map[string]string{"If-Match": `"1"`},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, request{method: http.MethodPut, path: "/api/projects/" + id, token: token, body: map[string]any{"progress": 150}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/projects/" + id, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Project models.Project `json:"project"`
	}
	decode(t, rec, &got)
	assert.Equal(t, 40, got.Project.Progress)

	rec = e.do(t, request{method: http.MethodDelete, path: "/api/projects/" + id, token: token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/projects/" + id, token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func createProject(t *testing.T, e testEnv, token, name string) string {
	t.Helper()
	rec := e.do(t, request{method: http.MethodPost, path: "/api/projects", token: token, body: map[string]any{"name": name}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Project models.Project `json:"project"`
	}
	decode(t, rec, &resp)
	return resp.Project.ID
}

func createTask(t *testing.T, e testEnv, token string, in planner.TaskInput) models.Task {
	t.Helper()
	rec := e.do(t, request{method: http.MethodPost, path: "/api/tasks", token: token, body: in})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &resp)
	return resp.Task
}

func TestTasksAndBoard(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")
	projectID := createProject(t, e, token, "Website")

	first := createTask(t, e, token, planner.TaskInput{Title: "Design", ProjectID: projectID, DueDate: "2024-03-15"})
	second := createTask(t, e, token, planner.TaskInput{Title: "Build", ProjectID: projectID, DueDate: "2024-03-16", Status: "inProgress"})
	assert.Equal(t, models.StatusTodo, first.Status)

	rec := e.do(t, request{method: http.MethodPost, path: "/api/tasks", token: token, body: planner.TaskInput{Title: "x", ProjectID: projectID, Status: "blocked"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/projects/" + projectID + "/tasks", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Tasks []models.Task `json:"tasks"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Tasks, 2)

	rec = e.do(t, request{method: http.MethodPut, path: "/api/board/tasks/" + first.ID, token: token, body: map[string]any{"status": "done"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, request{method: http.MethodGet, path: "/api/board", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var b struct {
		Columns []struct {
			ID    string        `json:"id"`
			Title string        `json:"title"`
			Tasks []models.Task `json:"tasks"`
		} `json:"columns"`
	}
	decode(t, rec, &b)
	require.Len(t, b.Columns, 3)
	assert.Empty(t, b.Columns[0].Tasks)
	require.Len(t, b.Columns[1].Tasks, 1)
	assert.Equal(t, second.ID, b.Columns[1].Tasks[0].ID)
	require.Len(t, b.Columns[2].Tasks, 1)
	assert.Equal(t, first.ID, b.Columns[2].Tasks[0].ID)

	rec = e.do(t, request{
		method: http.MethodPut, path: "/api/tasks/" + second.ID, token: token,
		body:    map[string]any{"title": "Build site"},
		headers: map[string]string{"If-Match": "W/\"99\""},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, request{method: http.MethodPut, path: "/api/tasks/" + second.ID, token: token, body: map[string]any{"title": "Build site"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, request{method: http.MethodDelete, path: "/api/tasks/" + second.ID, token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, request{method: http.MethodGet, path: "/api/tasks/" + second.ID, token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentsAndFiles(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")
	projectID := createProject(t, e, token, "Website")
	task := createTask(t, e, token, planner.TaskInput{Title: "Design", ProjectID: projectID})

	rec := e.upload(t, http.MethodPost, "/api/tasks/"+task.ID+"/documents", token, "Brief.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var up struct {
		Document models.Document `json:"document"`
	}
	decode(t, rec, &up)
	assert.Equal(t, "Brief.pdf", up.Document.Name)
	require.True(t, strings.HasPrefix(up.Document.URL, "/api/blobs/"), up.Document.URL)

	rec = e.do(t, request{method: http.MethodGet, path: up.Document.URL, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = e.do(t, request{method: http.MethodGet, path: "/api/files?q=brief", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var files struct {
		Files []models.FileEntry `json:"files"`
	}
	decode(t, rec, &files)
	require.Len(t, files.Files, 1)
	assert.Equal(t, "Design", files.Files[0].TaskName)
	assert.Equal(t, "Website", files.Files[0].ProjectName)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/files?q=zzz", token: token})
	decode(t, rec, &files)
	assert.Empty(t, files.Files)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/projects/" + projectID + "/documents", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), up.Document.ID)

	rec = e.do(t, request{method: http.MethodDelete, path: "/api/tasks/" + task.ID + "/documents/" + up.Document.ID, token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, request{method: http.MethodGet, path: up.Document.URL, token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.upload(t, http.MethodPost, "/api/tasks/missing/documents", token, "a.txt", "text/plain", []byte("x"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalendarAndDashboard(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")
	projectID := createProject(t, e, token, "Website")
	createTask(t, e, token, planner.TaskInput{Title: "Launch", ProjectID: projectID, DueDate: "2024-02-29"})

	rec := e.do(t, request{method: http.MethodGet, path: "/api/calendar?date=2024-01-31&shift=1", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var agenda planner.Agenda
	decode(t, rec, &agenda)
	assert.Equal(t, "month", string(agenda.View))
	assert.Equal(t, "2024-02-29", agenda.Anchor)
	assert.Equal(t, "2024-02-01", agenda.Start)
	assert.Equal(t, "2024-02-29", agenda.End)
	require.Len(t, agenda.Days, 29)
	require.Len(t, agenda.Days[28].Tasks, 1)
	assert.Equal(t, "Launch", agenda.Days[28].Tasks[0].Title)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/calendar?date=2024-03-13&key=w&ctrl=true", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &agenda)
	assert.Equal(t, "week", string(agenda.View))
	assert.Equal(t, "2024-03-10", agenda.Start)
	assert.Len(t, agenda.Days, 7)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/calendar?view=year", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, request{method: http.MethodGet, path: "/api/calendar?date=03/13/2024", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/dashboard?date=2024-02-28", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var dash planner.Dashboard
	decode(t, rec, &dash)
	assert.Len(t, dash.Projects, 1)
	assert.Len(t, dash.Columns, 3)
	require.Len(t, dash.Week, 7)
	assert.Equal(t, "2024-02-25", dash.Week[0].Date)
	assert.Len(t, dash.Week[4].Tasks, 1)
}

func TestProfile(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")

	rec := e.do(t, request{method: http.MethodPut, path: "/api/settings/profile", token: token, body: map[string]any{"firstName": "Ada", "email": "ada@example.com"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, request{method: http.MethodGet, path: "/api/settings/profile", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Profile models.Profile `json:"profile"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Ada", resp.Profile.FirstName)
	assert.Equal(t, "ada@example.com", resp.Profile.Email)

	rec = e.upload(t, http.MethodPut, "/api/settings/profile/picture", token, "me.png", "image/png", []byte("\x89PNG"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &resp)
	assert.True(t, strings.HasPrefix(resp.Profile.ProfilePicture, "/api/blobs/profiles/2/"), resp.Profile.ProfilePicture)

	rec = e.upload(t, http.MethodPut, "/api/settings/profile/picture", token, "notes.txt", "text/plain", []byte("hi"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlots(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")

	rec := e.do(t, request{method: http.MethodGet, path: "/api/slots/projects", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, `"0"`, rec.Header().Get("ETag"))

	body := `[{"id":"1","name":"Website","progress":10}]`
	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/projects", token: token, body: body, headers: map[string]string{"If-Match": `"0"`}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))

	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/projects", token: token, body: body, headers: map[string]string{"If-Match": `"0"`}})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/projects", token: token, body: body})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))

	rec = e.do(t, request{method: http.MethodGet, path: "/api/slots/projects", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var projects []models.Project
	decode(t, rec, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "Website", projects[0].Name)

	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/projects", token: token, body: `{"not":"an array"}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/projects", token: token, body: body, headers: map[string]string{"If-Match": "*"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"3"`, rec.Header().Get("ETag"))

	bad := map[string]string{
		"unknown status": `[{"id":"1","title":"a","status":"bogus"}]`,
		"duplicate id":   `[{"id":"1","title":"a","status":"todo"},{"id":"1","title":"b","status":"done"}]`,
		"missing id":     `[{"title":"a","status":"todo"}]`,
	}
	for name, raw := range bad {
		rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/tasks", token: token, body: raw})
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/projects", token: token, body: `[{"id":"1","name":"x","progress":500}]`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/projects", token: token, body: `[{"id":"1","name":"a"},{"id":"1","name":"b"}]`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/slots/tasks", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = e.do(t, request{method: http.MethodPut, path: "/api/slots/tasks", token: token, body: `[{"id":"1","title":"a","status":"todo"}]`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, request{method: http.MethodGet, path: "/api/slots/tasks", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"documents":[]`)

	rec = e.do(t, request{method: http.MethodGet, path: "/api/slots/widgets", token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIfMatchWildcard(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")
	id := createProject(t, e, token, "Website")

	for i, progress := range []int{20, 30} {
		rec := e.do(t, request{
			method: http.MethodPut, path: "/api/projects/" + id, token: token,
			body:    map[string]any{"progress": progress},
			headers: map[string]string{"If-Match": "*"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, fmt.Sprintf(`"%d"`, i+2), rec.Header().Get("ETag"))
	}

	rec := e.do(t, request{
		method: http.MethodPut, path: "/api/projects/" + id, token: token,
		body:    map[string]any{"progress": 40},
		headers: map[string]string{"If-Match": "abc"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorruptSlot(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")

	_, err := e.store.PutSlot(context.Background(), "tasks", []byte(`{broken`), -1)
	require.NoError(t, err)

	rec := e.do(t, request{method: http.MethodGet, path: "/api/slots/tasks", token: token})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStaticFallback(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "robots.txt"), []byte("User-agent: *"), 0o644))
	e := newTestEnv(t, static)

	rec := e.do(t, request{method: http.MethodGet, path: "/kanban"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app")

	rec = e.do(t, request{method: http.MethodGet, path: "/robots.txt"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User-agent: *", rec.Body.String())

	rec = e.do(t, request{method: http.MethodGet, path: "/api/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"endpoint not found"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("task x: %w", common.ErrNotFound), http.StatusNotFound},
		{common.ErrValidation, http.StatusBadRequest},
		{common.ErrDuplicateUsername, http.StatusBadRequest},
		{common.ErrTokenExpired, http.StatusUnauthorized},
		{common.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("update: %w", common.ErrVersionConflict), http.StatusConflict},
		{common.ErrCorruptSlot, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	e := newTestEnv(t, "")
	token := e.login(t, "user", "user123")
	require.NoError(t, e.store.Close())

	rec := e.do(t, request{method: http.MethodGet, path: "/api/projects", token: token})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}
