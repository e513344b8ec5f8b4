// Package auditcontext propagates request metadata that activity log
// entries record alongside each change.
package auditcontext

import (
	"context"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "audit_request_id"
	ipAddressKey contextKey = "audit_ip_address"
	userAgentKey contextKey = "audit_user_agent"
	sourceKey    contextKey = "audit_source"
)

const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
	SourceSeed      = "seed"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, ipAddressKey, ip)
}

func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ipAddressKey).(string); ok {
		return v
	}
	return ""
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey, ua)
}

func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey).(string); ok {
		return v
	}
	return ""
}

func WithSource(ctx context.Context, source string) context.Context {
	source = strings.TrimSpace(source)
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

func SourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sourceKey).(string); ok {
		return v
	}
	return SourceAPI
}
