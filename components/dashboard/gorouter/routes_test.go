package gorouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/components/dashboard/commands"
	"github.com/goliatone/go-portal-metrics/components/dashboard/httpapi"
	"github.com/goliatone/go-portal-metrics/components/dashboard/queries"
	"github.com/goliatone/go-portal-metrics/pkg/auth"
	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

func TestRegisterValidatesConfig(t *testing.T) {
	err := Register(Config[struct{}]{})
	if err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
}

func TestDefaultRouteConfig(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{HTML: "/home"})
	assert.Equal(t, "/home", routes.HTML)
	assert.Equal(t, "/dashboard/_layout", routes.Layout)
	assert.Equal(t, "/dashboard/widgets/:id/detail", routes.Detail)
	assert.Equal(t, "/uploads", routes.Uploads)
	assert.Equal(t, "/auth", routes.Auth)
}

func TestGuardRequiresToken(t *testing.T) {
	g := newGuard(&stubAuth{}, nil)
	req := newFakeRequest()
	called := false
	err := g.wrap(func(Request, dashboard.ViewerContext) error {
		called = true
		return nil
	})(req)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, req.status)
}

func TestGuardAcceptsBearerAndCookie(t *testing.T) {
	svc := &stubAuth{}
	g := newGuard(svc, nil)
	var seen dashboard.ViewerContext
	next := func(_ Request, viewer dashboard.ViewerContext) error {
		seen = viewer
		return nil
	}

	req := newFakeRequest()
	req.headers["Authorization"] = "Bearer good-token"
	require.NoError(t, g.wrap(next)(req))
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, "ana@portal.test", seen.Email)

	seen = dashboard.ViewerContext{}
	req = newFakeRequest()
	req.headers["Cookie"] = "theme=dark; " + AccessCookie + "=good-token"
	require.NoError(t, g.wrap(next)(req))
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, []string{"good-token", "good-token"}, svc.tokens)
}

func TestGuardRejectsInvalidToken(t *testing.T) {
	g := newGuard(&stubAuth{}, nil)
	req := newFakeRequest()
	req.headers["Authorization"] = "Bearer expired"
	require.NoError(t, g.wrap(func(Request, dashboard.ViewerContext) error { return nil })(req))
	assert.Equal(t, http.StatusUnauthorized, req.status)
}

func TestGuardWithoutAuthUsesLocals(t *testing.T) {
	g := newGuard(nil, nil)
	req := newFakeRequest()
	req.locals["user_id"] = "local-user"
	var seen dashboard.ViewerContext
	require.NoError(t, g.wrap(func(_ Request, viewer dashboard.ViewerContext) error {
		seen = viewer
		return nil
	})(req))
	assert.Equal(t, "local-user", seen.UserID)
}

func TestPageRendersTemplate(t *testing.T) {
	renderer := &stubRenderer{}
	h := portalHandlers{controller: newController(renderer)}
	req := newFakeRequest()

	require.NoError(t, h.page(req, dashboard.ViewerContext{UserID: "u1"}))

	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, "ok", string(req.body))
	assert.Equal(t, "text/html; charset=utf-8", req.headers["Content-Type"])
}

func TestLayoutReturnsPayload(t *testing.T) {
	h := portalHandlers{controller: newController(&stubRenderer{})}
	req := newFakeRequest()

	require.NoError(t, h.layout(req, dashboard.ViewerContext{}))

	require.Equal(t, http.StatusOK, req.status)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.body, &payload))
	areas, ok := payload["areas"].([]any)
	require.True(t, ok)
	assert.Len(t, areas, 1)
}

func TestDetailMapsNotFound(t *testing.T) {
	h := portalHandlers{queries: Queries{Detail: queries.NewWidgetDetailQuery(&stubDetail{})}}
	req := newFakeRequest()
	req.params["id"] = "missing"

	require.NoError(t, h.detail(req, dashboard.ViewerContext{}))

	assert.Equal(t, http.StatusNotFound, req.status)
}

func TestUploadForwardsFile(t *testing.T) {
	exec := &stubExecutor{}
	h := portalHandlers{api: exec, maxUploadBytes: httpapi.DefaultMaxUploadBytes}
	req := newFakeRequest()
	req.params["dataset"] = string(metrics.DatasetEngagement)
	req.query["product"] = "Atlas"
	req.headers["Content-Type"] = "text/csv"
	req.body = []byte("product,quarter\nAtlas,FY25 Q1\n")

	require.NoError(t, h.upload(req, dashboard.ViewerContext{Email: "ana@portal.test"}))

	require.Equal(t, http.StatusCreated, req.status)
	assert.Equal(t, metrics.DatasetEngagement, exec.imported.Dataset)
	assert.Equal(t, "Atlas", exec.imported.Product)
	assert.Equal(t, "engagement.csv", exec.imported.Filename)
	assert.Equal(t, "ana@portal.test", exec.imported.UploadedBy)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	exec := &stubExecutor{}
	h := portalHandlers{api: exec, maxUploadBytes: 4}
	req := newFakeRequest()
	req.params["dataset"] = string(metrics.DatasetForums)
	req.body = []byte("too large")

	require.NoError(t, h.upload(req, dashboard.ViewerContext{}))

	assert.Equal(t, http.StatusBadRequest, req.status)
	assert.Empty(t, exec.imported.Dataset)
}

func TestTemplateDownload(t *testing.T) {
	h := portalHandlers{}
	req := newFakeRequest()
	req.params["dataset"] = string(metrics.DatasetForums)

	require.NoError(t, h.template(req, dashboard.ViewerContext{}))

	assert.Contains(t, req.headers["Content-Disposition"], "forums_template.csv")
	assert.True(t, strings.HasPrefix(req.headers["Content-Type"], "text/csv"))
	assert.NotEmpty(t, req.body)
}

func TestHistoryReturnsEmptyList(t *testing.T) {
	h := portalHandlers{queries: Queries{History: queries.NewUploadHistoryQuery(emptyHistory{})}}
	req := newFakeRequest()

	require.NoError(t, h.history(req, dashboard.ViewerContext{}))

	assert.Equal(t, http.StatusOK, req.status)
	assert.Equal(t, "[]", strings.TrimSpace(string(req.body)))
}

func TestSelectScopeUsesViewer(t *testing.T) {
	exec := &stubExecutor{}
	h := portalHandlers{api: exec}
	req := newFakeRequest()
	req.body = []byte(`{"product":"Atlas","quarter":"FY25 Q2"}`)

	require.NoError(t, h.selectScope(req, dashboard.ViewerContext{UserID: "u1"}))

	assert.Equal(t, http.StatusOK, req.status)
	assert.Equal(t, "u1", exec.scope.UserID)
}

func TestSignInSetsCookie(t *testing.T) {
	a := authHandlers{service: &stubAuth{}}
	req := newFakeRequest()
	req.body = []byte(`{"email":"ana@portal.test","password":"correct-horse"}`)

	require.NoError(t, a.signIn(req))

	assert.Equal(t, http.StatusOK, req.status)
	assert.Contains(t, req.headers["Set-Cookie"], AccessCookie+"=good-token")
	assert.Contains(t, req.headers["Set-Cookie"], "HttpOnly")
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	a := authHandlers{service: &stubAuth{}}
	req := newFakeRequest()
	req.body = []byte(`{"email":"ana@portal.test","password":"wrong-password"}`)

	require.NoError(t, a.signIn(req))

	assert.Equal(t, http.StatusUnauthorized, req.status)
	assert.Empty(t, req.headers["Set-Cookie"])
}

func TestRecoveryReadsLinkParameters(t *testing.T) {
	a := authHandlers{service: &stubAuth{}}
	req := newFakeRequest()
	req.query["access_token"] = "acc"
	req.query["refresh_token"] = "ref"
	req.query["type"] = "recovery"

	require.NoError(t, a.recovery(req))

	require.Equal(t, http.StatusOK, req.status)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(req.body, &payload))
	assert.Equal(t, "acc", payload["access_token"])
	assert.Equal(t, "ref", payload["refresh_token"])

	req = newFakeRequest()
	req.query["access_token"] = "acc"
	require.NoError(t, a.recovery(req))
	assert.Equal(t, http.StatusUnauthorized, req.status)
}

// --- Test helpers ---

type fakeRequest struct {
	ctx     context.Context
	headers map[string]string
	query   map[string]string
	params  map[string]string
	locals  map[string]any
	body    []byte
	status  int
}

func newFakeRequest() *fakeRequest {
	return &fakeRequest{
		ctx:     context.Background(),
		headers: map[string]string{},
		query:   map[string]string{},
		params:  map[string]string{},
		locals:  map[string]any{},
	}
}

func (f *fakeRequest) Context() context.Context    { return f.ctx }
func (f *fakeRequest) Param(name string) string    { return f.params[name] }
func (f *fakeRequest) Query(name string) string    { return f.query[name] }
func (f *fakeRequest) Header(name string) string   { return f.headers[name] }
func (f *fakeRequest) Body() []byte                { return f.body }
func (f *fakeRequest) Local(key string) any        { return f.locals[key] }
func (f *fakeRequest) SetLocal(key string, v any)  { f.locals[key] = v }
func (f *fakeRequest) SetHeader(key, value string) { f.headers[key] = value }

func (f *fakeRequest) JSON(status int, v any) error {
	f.status = status
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.body = data
	return nil
}

func (f *fakeRequest) Send(body []byte) error {
	f.status = http.StatusOK
	f.body = append([]byte{}, body...)
	return nil
}

type stubLayoutResolver struct{}

func (stubLayoutResolver) ConfigureLayout(context.Context, dashboard.ViewerContext) (dashboard.Layout, error) {
	return dashboard.Layout{
		Areas: map[string][]dashboard.WidgetInstance{
			dashboard.AreaMain: {{ID: "engagement", DefinitionID: dashboard.WidgetEngagement, AreaCode: dashboard.AreaMain}},
		},
	}, nil
}

type stubRenderer struct {
	calls int
}

func (s *stubRenderer) Render(_ string, _ any, out ...io.Writer) (string, error) {
	s.calls++
	if len(out) > 0 && out[0] != nil {
		_, _ = out[0].Write([]byte("ok"))
	}
	return "ok", nil
}

func newController(renderer dashboard.Renderer) *dashboard.Controller {
	return dashboard.NewController(dashboard.ControllerOptions{
		Service:  stubLayoutResolver{},
		Renderer: renderer,
	})
}

type emptyHistory struct{}

func (emptyHistory) History(context.Context, int) ([]csvimport.Upload, error) {
	return nil, nil
}

type stubDetail struct{}

func (stubDetail) WidgetDetail(_ context.Context, _ dashboard.ViewerContext, id string) (dashboard.WidgetDetail, error) {
	return dashboard.WidgetDetail{}, errors.Join(dashboard.ErrWidgetNotFound, errors.New(id))
}

type stubExecutor struct {
	httpapi.CommandExecutor
	imported commands.ImportDatasetInput
	scope    commands.SelectScopeInput
}

func (s *stubExecutor) Import(_ context.Context, input commands.ImportDatasetInput) error {
	s.imported = input
	*input.Result = csvimport.Result{Dataset: input.Dataset, Product: input.Product}
	return nil
}

func (s *stubExecutor) SelectScope(_ context.Context, input commands.SelectScopeInput) error {
	s.scope = input
	*input.Result = metrics.Scope{Product: input.Product, Quarter: input.Quarter}
	return nil
}

type stubAuth struct {
	tokens []string
}

func (s *stubAuth) pair() auth.TokenPair {
	return auth.TokenPair{AccessToken: "good-token", RefreshToken: "refresh", TokenType: "bearer", ExpiresAt: time.Now().Add(time.Hour)}
}

func (s *stubAuth) SignUp(context.Context, string, string) (auth.TokenPair, error) {
	return s.pair(), nil
}

func (s *stubAuth) SignIn(_ context.Context, _ string, password string) (auth.TokenPair, error) {
	if password != "correct-horse" {
		return auth.TokenPair{}, auth.ErrInvalidCredentials
	}
	return s.pair(), nil
}

func (s *stubAuth) Refresh(context.Context, string) (auth.TokenPair, error) {
	return s.pair(), nil
}

func (s *stubAuth) SignOut(context.Context, string) error { return nil }

func (s *stubAuth) Authenticate(_ context.Context, token string) (auth.Claims, error) {
	s.tokens = append(s.tokens, token)
	if token != "good-token" {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	claims := auth.Claims{Email: "ana@portal.test", Kind: auth.TokenAccess}
	claims.Subject = "user-1"
	return claims, nil
}

func (s *stubAuth) RequestPasswordReset(context.Context, string) error { return nil }

func (s *stubAuth) ResetPassword(context.Context, string, string) error { return nil }
