package gorouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/components/dashboard/httpapi"
	"github.com/goliatone/go-portal-metrics/pkg/auth"
)

// AccessCookie carries the access token for browser sessions.
const AccessCookie = "portal_access"

const viewerLocal = "portal.viewer"

// AuthService is the subset of auth.Service the transport exposes.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (auth.TokenPair, error)
	SignIn(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (auth.Claims, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, accessToken, newPassword string) error
}

type authHandlers struct {
	service AuthService
	secure  bool
}

func (h authHandlers) signUp(req Request) error {
	var creds auth.Credentials
	if err := decodeBody(req, &creds); err != nil {
		return respondError(req, err)
	}
	pair, err := h.service.SignUp(req.Context(), creds.Email, creds.Password)
	if err != nil {
		return respondError(req, err)
	}
	h.setSession(req, pair)
	return req.JSON(http.StatusCreated, pair)
}

func (h authHandlers) signIn(req Request) error {
	var creds auth.Credentials
	if err := decodeBody(req, &creds); err != nil {
		return respondError(req, err)
	}
	pair, err := h.service.SignIn(req.Context(), creds.Email, creds.Password)
	if err != nil {
		return respondError(req, err)
	}
	h.setSession(req, pair)
	return req.JSON(http.StatusOK, pair)
}

func (h authHandlers) refresh(req Request) error {
	var payload auth.RefreshRequest
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	pair, err := h.service.Refresh(req.Context(), payload.RefreshToken)
	if err != nil {
		return respondError(req, err)
	}
	h.setSession(req, pair)
	return req.JSON(http.StatusOK, pair)
}

func (h authHandlers) signOut(req Request) error {
	var payload auth.RefreshRequest
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	if err := h.service.SignOut(req.Context(), payload.RefreshToken); err != nil {
		return respondError(req, err)
	}
	h.clearSession(req)
	return req.JSON(http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h authHandlers) recover(req Request) error {
	var payload auth.RecoverRequest
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	if err := h.service.RequestPasswordReset(req.Context(), payload.Email); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
}

// recovery validates the link parameters and hands the tokens to the reset form.
func (h authHandlers) recovery(req Request) error {
	values := url.Values{}
	for _, key := range []string{"access_token", "refresh_token", "type"} {
		if v := req.Query(key); v != "" {
			values.Set(key, v)
		}
	}
	params, err := auth.ParseRecoveryParams(values)
	if err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, map[string]string{
		"access_token":  params.AccessToken,
		"refresh_token": params.RefreshToken,
	})
}

func (h authHandlers) reset(req Request) error {
	var payload auth.ResetRequest
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	if err := h.service.ResetPassword(req.Context(), payload.AccessToken, payload.Password); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, map[string]string{"status": "password_updated"})
}

func (h authHandlers) setSession(req Request, pair auth.TokenPair) {
	cookie := &http.Cookie{
		Name:     AccessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	req.SetHeader("Set-Cookie", cookie.String())
}

func (h authHandlers) clearSession(req Request) {
	cookie := &http.Cookie{
		Name:     AccessCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
	}
	req.SetHeader("Set-Cookie", cookie.String())
}

// accessToken reads a bearer token, falling back to the session cookie.
func accessToken(req Request) string {
	if header := strings.TrimSpace(req.Header("Authorization")); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	raw := req.Header("Cookie")
	if raw == "" {
		return ""
	}
	probe := &http.Request{Header: http.Header{"Cookie": {raw}}}
	cookie, err := probe.Cookie(AccessCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// authenticate resolves the viewer from the access token and caches it on
// the request.
func authenticate(req Request, service AuthService) (dashboard.ViewerContext, error) {
	if viewer, ok := req.Local(viewerLocal).(dashboard.ViewerContext); ok {
		return viewer, nil
	}
	token := accessToken(req)
	if token == "" {
		return dashboard.ViewerContext{}, httpapi.ErrUnauthenticated
	}
	claims, err := service.Authenticate(req.Context(), token)
	if err != nil {
		return dashboard.ViewerContext{}, fmt.Errorf("%w: %w", httpapi.ErrUnauthenticated, err)
	}
	viewer := dashboard.ViewerContext{UserID: claims.UserID(), Email: claims.Email}
	req.SetLocal(viewerLocal, viewer)
	return viewer, nil
}

func decodeBody(req Request, v any) error {
	body := req.Body()
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", httpapi.ErrBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", httpapi.ErrBadRequest, err)
	}
	return nil
}

func respondError(req Request, err error) error {
	return req.JSON(httpapi.StatusFor(err), httpapi.ErrorPayload(err))
}
