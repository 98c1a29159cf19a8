package gorouter

import (
	"context"

	router "github.com/goliatone/go-router"
)

// Request is the slice of router.Context the portal handlers use.
type Request interface {
	Context() context.Context
	Param(name string) string
	Query(name string) string
	Header(name string) string
	Body() []byte
	Local(key string) any
	SetLocal(key string, value any)
	SetHeader(key, value string)
	JSON(status int, v any) error
	Send(body []byte) error
}

type routerRequest struct {
	ctx router.Context
}

func (r routerRequest) Context() context.Context     { return r.ctx.Context() }
func (r routerRequest) Param(name string) string     { return r.ctx.Param(name) }
func (r routerRequest) Query(name string) string     { return r.ctx.Query(name) }
func (r routerRequest) Header(name string) string    { return r.ctx.Header(name) }
func (r routerRequest) Body() []byte                 { return r.ctx.Body() }
func (r routerRequest) Local(key string) any         { return r.ctx.Locals(key) }
func (r routerRequest) SetLocal(key string, v any)   { r.ctx.Locals(key, v) }
func (r routerRequest) SetHeader(key, value string)  { r.ctx.SetHeader(key, value) }
func (r routerRequest) JSON(status int, v any) error { return r.ctx.JSON(status, v) }
func (r routerRequest) Send(body []byte) error       { return r.ctx.Send(body) }

func handle(fn func(Request) error) router.HandlerFunc {
	return router.WrapHandler(func(ctx router.Context) error {
		return fn(routerRequest{ctx: ctx})
	})
}
