// Package router implements the Request Router: a dispatch table from
// request names to handler functions.
package router

import (
	"encoding/json"

	"github.com/lngonzalezg/yerba/internal/yerbaerrors"
)

// Envelope is the wire request: {"request": <string>, "data": <object|null>}.
type Envelope struct {
	Request string          `json:"request"`
	Data    json.RawMessage `json:"data"`
}

// Handler processes one request's data and returns the response object
// to encode back to the client.
type Handler func(data json.RawMessage) (any, error)

// Router is a plain map from request name to Handler, the Go shape of
// the source's route/dispatch pair once its decorator sugar is removed.
type Router struct {
	handlers map[string]Handler
}

// New returns an empty Router.
func New() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds name to handler, overwriting any prior registration.
func (r *Router) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Dispatch looks up env.Request and invokes its handler with env.Data.
// A missing route or an envelope missing "request" fails with
// ErrRouteNotFound.
func (r *Router) Dispatch(env Envelope) (any, error) {
	if env.Request == "" {
		return nil, yerbaerrors.ErrRouteNotFound
	}
	handler, ok := r.handlers[env.Request]
	if !ok {
		return nil, yerbaerrors.ErrRouteNotFound
	}
	return handler(env.Data)
}
