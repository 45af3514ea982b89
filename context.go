package pipesql

import (
	"context"
)

// metaKey is an unexported context key type.
type metaKey struct{}
type dryRunKey struct{}

// WithBatchID tags the statements applied under ctx in logs.
func WithBatchID(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.batchID = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithReason attaches a human-readable reason for the batch.
func WithReason(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.reason = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithDryRun marks the context so the applier renders statements without executing them.
func WithDryRun(ctx context.Context) context.Context {
	return context.WithValue(ctx, dryRunKey{}, true)
}

// meta carries operational context for logs.
type meta struct {
	batchID string
	reason  string
}

func extractMeta(ctx context.Context) meta {
	if v := ctx.Value(metaKey{}); v != nil {
		if m, ok := v.(meta); ok {
			return m
		}
	}
	return meta{}
}

func extractDryRun(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey{}).(bool); ok {
		return v
	}
	return false
}
