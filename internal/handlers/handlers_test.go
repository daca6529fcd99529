package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazir74680/Tumor-segmeantation/internal/analysis"
	"github.com/nazir74680/Tumor-segmeantation/internal/credentials"
	"github.com/nazir74680/Tumor-segmeantation/internal/guard"
	"github.com/nazir74680/Tumor-segmeantation/internal/middleware"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/repository"
	"github.com/nazir74680/Tumor-segmeantation/internal/service"
	"github.com/nazir74680/Tumor-segmeantation/internal/session"
)

type stubPredictor struct{ calls int }

func (s *stubPredictor) Predict(_ context.Context, in service.PredictInput) (service.PredictResult, error) {
	s.calls++
	data, _ := io.ReadAll(in.File)
	if len(data) == 0 {
		return service.PredictResult{}, service.ErrEmptyFile
	}
	return service.PredictResult{
		Analysis: models.Analysis{ID: "a1", UserID: in.User.ID},
		Result:   analysis.Result{TumorPercentage: 4.2, ImageSize: analysis.ImageSize{Width: 2, Height: 2}},
	}, nil
}

type stubAnnotator struct{ calls int }

func (s *stubAnnotator) Annotate(_ context.Context, in service.AnnotateInput) (models.Analysis, error) {
	s.calls++
	if in.AnalysisID != "a1" {
		return models.Analysis{}, repository.ErrAnalysisNotFound
	}
	return models.Analysis{
		ID:      in.AnalysisID,
		UserID:  in.User.ID,
		MaskKey: "annotations/" + in.User.ID + "/a1/mask.png",
	}, nil
}

// unavailableStorage fails every token write.
type unavailableStorage struct {
	*session.MemoryStorage
}

func (unavailableStorage) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

type stubAnalyses struct{}

func (stubAnalyses) ListByUser(_ context.Context, userID string, _, _ int) ([]models.Analysis, error) {
	return []models.Analysis{{ID: "a1", UserID: userID}}, nil
}

func (stubAnalyses) List(context.Context, int, int) ([]models.Analysis, error) {
	return []models.Analysis{{ID: "a1"}, {ID: "a2"}}, nil
}

func (stubAnalyses) Count(context.Context) (int, error) { return 2, nil }

type stubNotifications struct {
	items map[string]models.Notification
}

func (s *stubNotifications) ListByUser(_ context.Context, userID string, _ int) ([]models.Notification, error) {
	out := make([]models.Notification, 0)
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *stubNotifications) UnreadCount(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *stubNotifications) MarkRead(_ context.Context, userID, id string) error {
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotificationNotFound
	}
	n.Read = true
	s.items[id] = n
	return nil
}

func (s *stubNotifications) MarkAllRead(_ context.Context, userID string) error {
	for id, n := range s.items {
		if n.UserID == userID {
			n.Read = true
			s.items[id] = n
		}
	}
	return nil
}

func (s *stubNotifications) Delete(_ context.Context, userID, id string) error {
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotificationNotFound
	}
	delete(s.items, id)
	return nil
}

type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func (c *client) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "medical_origin" {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) login(email, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(loginRequest{Email: email, Password: password})
	return c.do(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body), "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type routerOptions struct {
	storage       session.Storage
	notifications *stubNotifications
	predictor     *stubPredictor
	annotator     *stubAnnotator
	maxUpload     int64
}

func newTestRouter(t *testing.T, notifications *stubNotifications) *gin.Engine {
	t.Helper()
	return newRouter(t, routerOptions{notifications: notifications})
}

func newRouter(t *testing.T, opts routerOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if opts.storage == nil {
		opts.storage = session.NewMemoryStorage()
	}
	if opts.notifications == nil {
		opts.notifications = &stubNotifications{}
	}
	if opts.predictor == nil {
		opts.predictor = &stubPredictor{}
	}
	if opts.annotator == nil {
		opts.annotator = &stubAnnotator{}
	}

	table, err := credentials.New(credentials.Defaults())
	require.NoError(t, err)
	reg := session.NewRegistry(session.RegistryOptions{
		Storage:     opts.storage,
		Credentials: table,
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(reg.Close)

	h := NewHandlerSet(zerolog.Nop(), Dependencies{
		Environment:    "test",
		Sessions:       reg,
		Guard:          guard.New("/"),
		Predictor:      opts.predictor,
		Annotator:      opts.annotator,
		Analyses:       stubAnalyses{},
		Notifications:  opts.notifications,
		MaxUploadBytes: opts.maxUpload,
		Checks: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"cache":    func(context.Context) error { return errors.New("down") },
		},
	})

	r := gin.New()
	r.Use(middleware.Origin(middleware.OriginOptions{}))
	h.Register(r.Group("/api"))
	return r
}

func TestAuthFlow(t *testing.T) {
	c := &client{t: t, router: newTestRouter(t, &stubNotifications{items: map[string]models.Notification{}})}

	w := c.do(http.MethodGet, "/api/v1/auth/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["isAuthenticated"])
	assert.Equal(t, false, body["loading"])
	require.NotNil(t, c.cookie)

	w = c.login("admin@example.com", "wrongpass")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid credentials"}`, w.Body.String())

	w = c.login("user@example.com", "user123")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "/dashboard", body["redirect"])
	assert.NotEmpty(t, body["token"])

	w = c.do(http.MethodGet, "/api/v1/auth/session", nil, "")
	body = decode(t, w)
	assert.Equal(t, true, body["isAuthenticated"])
	assert.Nil(t, body["redirect"])

	w = c.do(http.MethodGet, "/api/v1/admin/stats", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/", decode(t, w)["redirect"])

	w = c.do(http.MethodGet, "/api/v1/dashboard/analyses", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/api/v1/auth/logout", nil, "")
	assert.JSONEq(t, `{"redirect":"/login"}`, w.Body.String())

	w = c.do(http.MethodGet, "/api/v1/dashboard/analyses", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body = decode(t, w)
	assert.Equal(t, "/login", body["redirect"])
	assert.Equal(t, "/api/v1/dashboard/analyses", body["from"])
}

func TestLoginStorageFailure(t *testing.T) {
	c := &client{t: t, router: newRouter(t, routerOptions{
		storage: unavailableStorage{MemoryStorage: session.NewMemoryStorage()},
	})}

	w := c.login("admin@example.com", "admin123")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"quota exceeded"}`, w.Body.String())

	w = c.login("admin@example.com", "wrongpass")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, loginStatus(session.ErrInvalidCredentials))
	assert.Equal(t, http.StatusUnauthorized, loginStatus(session.ErrSessionExpired))
	assert.Equal(t, http.StatusServiceUnavailable, loginStatus(fmt.Errorf("%w: redis down", session.ErrStorageUnavailable)))
	assert.Equal(t, http.StatusInternalServerError, loginStatus(errors.New("encode")))
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	c := &client{t: t, router: newTestRouter(t, &stubNotifications{})}
	w := c.do(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	c := &client{t: t, router: newTestRouter(t, &stubNotifications{})}

	w := c.login("admin@example.com", "admin123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/admin", decode(t, w)["redirect"])

	w = c.do(http.MethodGet, "/api/v1/admin/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalAnalyses":2,"trackedOrigins":1,"activeSessions":1}`, w.Body.String())

	w = c.do(http.MethodGet, "/api/v1/admin/analyses?page=1&perPage=10", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	assert.Len(t, items, 2)

	w = c.do(http.MethodGet, "/api/v1/dashboard/analyses", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPredictEndpoint(t *testing.T) {
	c := &client{t: t, router: newTestRouter(t, &stubNotifications{})}
	require.Equal(t, http.StatusOK, c.login("user@example.com", "user123").Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "slice.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("data"))
	require.NoError(t, mw.Close())

	w := c.do(http.MethodPost, "/api/v1/dashboard/predict", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, 4.2, out["tumor_percentage"])
	assert.Equal(t, "a1", out["analysisId"])
	assert.Equal(t, map[string]any{"width": float64(2), "height": float64(2)}, out["image_size"])

	w = c.do(http.MethodPost, "/api/v1/dashboard/predict", bytes.NewBufferString("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictStatus(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, predictStatus(service.ErrFileTooLarge))
	assert.Equal(t, http.StatusBadGateway, predictStatus(analysis.ErrAnalysisFailed))
	assert.Equal(t, http.StatusBadRequest, predictStatus(service.ErrEmptyFile))
	assert.Equal(t, http.StatusInternalServerError, predictStatus(errors.New("boom")))
}

func TestNotificationEndpoints(t *testing.T) {
	store := &stubNotifications{items: map[string]models.Notification{
		"n1": {ID: "n1", UserID: "2", Title: "Signed in"},
		"n2": {ID: "n2", UserID: "2", Title: "Analysis ready"},
		"n3": {ID: "n3", UserID: "1", Title: "other user"},
	}}
	c := &client{t: t, router: newTestRouter(t, store)}

	w := c.do(http.MethodGet, "/api/v1/notifications", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	require.Equal(t, http.StatusOK, c.login("user@example.com", "user123").Code)

	w = c.do(http.MethodGet, "/api/v1/notifications", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["unreadCount"])
	assert.Len(t, body["items"], 2)

	w = c.do(http.MethodPost, "/api/v1/notifications/n1/read", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, store.items["n1"].Read)

	w = c.do(http.MethodPost, "/api/v1/notifications/n3/read", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodPost, "/api/v1/notifications/read-all", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, store.items["n2"].Read)
	assert.False(t, store.items["n3"].Read)

	w = c.do(http.MethodDelete, "/api/v1/notifications/n2", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, exists := store.items["n2"]
	assert.False(t, exists)

	w = c.do(http.MethodDelete, "/api/v1/notifications/n2", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	c := &client{t: t, router: newTestRouter(t, &stubNotifications{})}
	w := c.do(http.MethodGet, "/api/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"ok","cache":"error"},"environment":"test"}`, w.Body.String())
}

type filePart struct {
	field string
	name  string
	data  []byte
}

func multipartBody(t *testing.T, parts ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		w, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestSaveAnnotation(t *testing.T) {
	annotator := &stubAnnotator{}
	c := &client{t: t, router: newRouter(t, routerOptions{annotator: annotator})}

	body, contentType := multipartBody(t,
		filePart{"image", "slice.png", []byte("image")},
		filePart{"mask", "blob", []byte("mask")},
	)
	w := c.do(http.MethodPost, "/api/v1/dashboard/analyses/a1/annotation", body, contentType)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	require.Equal(t, http.StatusOK, c.login("user@example.com", "user123").Code)

	body, contentType = multipartBody(t,
		filePart{"image", "slice.png", []byte("image")},
		filePart{"mask", "blob", []byte("mask")},
	)
	w = c.do(http.MethodPost, "/api/v1/dashboard/analyses/a1/annotation", body, contentType)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "Annotation saved successfully", out["message"])
	assert.Equal(t, "annotations/2/a1/mask.png", out["analysis"].(map[string]any)["maskKey"])

	body, contentType = multipartBody(t, filePart{"image", "slice.png", []byte("image")})
	w = c.do(http.MethodPost, "/api/v1/dashboard/analyses/a1/annotation", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No image or mask provided"}`, w.Body.String())

	body, contentType = multipartBody(t,
		filePart{"image", "slice.png", []byte("image")},
		filePart{"mask", "blob", []byte("mask")},
	)
	w = c.do(http.MethodPost, "/api/v1/dashboard/analyses/missing/annotation", body, contentType)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 2, annotator.calls)
}

func TestAnnotateStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, annotateStatus(repository.ErrAnalysisNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, annotateStatus(service.ErrArchiveUnavailable))
	assert.Equal(t, http.StatusBadRequest, annotateStatus(service.ErrInvalidMask))
	assert.Equal(t, http.StatusRequestEntityTooLarge, annotateStatus(service.ErrFileTooLarge))
	assert.Equal(t, http.StatusInternalServerError, annotateStatus(errors.New("boom")))
}

func TestUploadBodyLimit(t *testing.T) {
	predictor := &stubPredictor{}
	annotator := &stubAnnotator{}
	c := &client{t: t, router: newRouter(t, routerOptions{
		predictor: predictor,
		annotator: annotator,
		maxUpload: 1024,
	})}
	require.Equal(t, http.StatusOK, c.login("user@example.com", "user123").Code)

	oversized := bytes.Repeat([]byte{1}, 2*multipartOverhead)

	body, contentType := multipartBody(t, filePart{"file", "slice.png", oversized})
	w := c.do(http.MethodPost, "/api/v1/dashboard/predict", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, predictor.calls)

	body, contentType = multipartBody(t,
		filePart{"image", "slice.png", []byte("image")},
		filePart{"mask", "blob", oversized},
	)
	w = c.do(http.MethodPost, "/api/v1/dashboard/analyses/a1/annotation", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, annotator.calls)

	body, contentType = multipartBody(t, filePart{"file", "slice.png", []byte("small")})
	w = c.do(http.MethodPost, "/api/v1/dashboard/predict", body, contentType)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, predictor.calls)
}
