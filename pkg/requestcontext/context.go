// Package requestcontext carries request-scoped values (request ID, live
// connection ID, request time) through context so services never import
// net/http or websocket.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	keyRequestID key = iota
	keyConnectionID
	keyRequestTime
)

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// ConnectionID is the live connection a call came from, or "" for calls made
// over the request/response API.
func ConnectionID(ctx context.Context) string {
	id, _ := ctx.Value(keyConnectionID).(string)
	return id
}

func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyConnectionID, id)
}

// Now returns the time pinned by WithTime, else the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(keyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}
