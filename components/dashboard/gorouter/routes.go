package gorouter

import (
	"errors"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/components/dashboard/httpapi"
)

// ViewerResolver converts a request into a dashboard.ViewerContext when no
// AuthService is configured.
type ViewerResolver func(Request) dashboard.ViewerContext

// Config wires go-router with the portal controller, APIs, and hooks.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *dashboard.Controller
	API            httpapi.Executor
	Queries        Queries
	Auth           AuthService
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
	MaxUploadBytes int64
	SecureCookies  bool
}

// RouteConfig customizes the relative paths used for portal endpoints.
type RouteConfig struct {
	HTML        string
	Layout      string
	View        string
	Detail      string
	Scope       string
	Preferences string
	Widgets     string
	WidgetID    string
	Reorder     string
	Refresh     string
	WebSocket   string
	Uploads     string
	ActionItems string
	Auth        string
}

// Register mounts portal routes (HTML, JSON, uploads, auth, WebSocket) on a
// go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/portal"
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = httpapi.DefaultMaxUploadBytes
	}
	h := portalHandlers{
		controller:     cfg.Controller,
		api:            cfg.API,
		queries:        cfg.Queries,
		maxUploadBytes: maxUpload,
	}
	guard := newGuard(cfg.Auth, cfg.ViewerResolver)
	group := cfg.Router.Group(base)

	group.Get(routes.HTML, handle(guard.wrap(h.page)))
	group.Get(routes.Layout, handle(guard.wrap(h.layout)))
	group.Get(routes.View, handle(guard.wrap(h.view)))
	group.Get(routes.Detail, handle(guard.wrap(h.detail)))
	group.Get(routes.Uploads+"/history", handle(guard.wrap(h.history)))
	group.Get(routes.Uploads+"/:dataset/template", handle(guard.wrap(h.template)))
	group.Get(routes.ActionItems, handle(guard.wrap(h.listActionItems)))

	if cfg.API != nil {
		group.Post(routes.Scope, handle(guard.wrap(h.selectScope)))
		group.Post(routes.Preferences, handle(guard.wrap(h.preferences)))
		group.Post(routes.Widgets, handle(guard.wrap(h.assign)))
		group.Post(routes.Reorder, handle(guard.wrap(h.reorder)))
		group.Post(routes.Refresh, handle(guard.wrap(h.refresh)))
		group.Put(routes.WidgetID, handle(guard.wrap(h.update)))
		group.Delete(routes.WidgetID, handle(guard.wrap(h.remove)))
		group.Post(routes.Uploads+"/:dataset", handle(guard.wrap(h.upload)))
		group.Post(routes.ActionItems, handle(guard.wrap(h.saveActionItem)))
		group.Put(routes.ActionItems+"/:id", handle(guard.wrap(h.saveActionItem)))
		group.Delete(routes.ActionItems+"/:id", handle(guard.wrap(h.deleteActionItem)))
	}

	if cfg.Auth != nil {
		a := authHandlers{service: cfg.Auth, secure: cfg.SecureCookies}
		group.Post(routes.Auth+"/signup", handle(a.signUp))
		group.Post(routes.Auth+"/signin", handle(a.signIn))
		group.Post(routes.Auth+"/refresh", handle(a.refresh))
		group.Post(routes.Auth+"/signout", handle(a.signOut))
		group.Post(routes.Auth+"/recover", handle(a.recover))
		group.Post(routes.Auth+"/reset", handle(a.reset))
		group.Get(routes.Auth+"/recovery", handle(a.recovery))
	}

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}

	return nil
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// guard resolves the viewer for every portal route. With an AuthService the
// access token is required; without one the resolver decides.
type guard struct {
	auth     AuthService
	resolver ViewerResolver
}

func newGuard(auth AuthService, resolver ViewerResolver) guard {
	if resolver == nil {
		resolver = defaultViewerResolver
	}
	return guard{auth: auth, resolver: resolver}
}

func (g guard) wrap(next viewerHandler) func(Request) error {
	return func(req Request) error {
		if g.auth == nil {
			return next(req, g.resolver(req))
		}
		viewer, err := authenticate(req, g.auth)
		if err != nil {
			return respondError(req, err)
		}
		return next(req, viewer)
	}
}

func defaultViewerResolver(req Request) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := req.Local("user_id").(string); ok {
		viewer.UserID = v
	}
	if v, ok := req.Local("email").(string); ok {
		viewer.Email = v
	}
	if roles, ok := req.Local("roles").([]string); ok {
		viewer.Roles = roles
	}
	return viewer
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/dashboard"
	}
	if routes.Layout == "" {
		routes.Layout = "/dashboard/_layout"
	}
	if routes.View == "" {
		routes.View = "/dashboard/view"
	}
	if routes.Detail == "" {
		routes.Detail = "/dashboard/widgets/:id/detail"
	}
	if routes.Scope == "" {
		routes.Scope = "/dashboard/scope"
	}
	if routes.Preferences == "" {
		routes.Preferences = "/dashboard/preferences"
	}
	if routes.Widgets == "" {
		routes.Widgets = "/dashboard/widgets"
	}
	if routes.WidgetID == "" {
		routes.WidgetID = "/dashboard/widgets/:id"
	}
	if routes.Reorder == "" {
		routes.Reorder = "/dashboard/widgets/reorder"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/dashboard/widgets/refresh"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/dashboard/ws"
	}
	if routes.Uploads == "" {
		routes.Uploads = "/uploads"
	}
	if routes.ActionItems == "" {
		routes.ActionItems = "/action-items"
	}
	if routes.Auth == "" {
		routes.Auth = "/auth"
	}
	return routes
}
