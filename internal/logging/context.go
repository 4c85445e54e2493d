package logging

import (
	"context"
	"maps"
)

type contextKey string

const contextFieldsKey contextKey = "kuebico.logging.fields"

// ContextWithFields returns a context carrying structured fields that the
// console logger merges into entries written through WithContext. Fields
// already present on ctx are kept unless overridden.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}

	merged := make(map[string]any, len(fields))
	if existing := ContextFields(ctx); len(existing) > 0 {
		maps.Copy(merged, existing)
	}
	maps.Copy(merged, fields)
	return context.WithValue(ctx, contextFieldsKey, merged)
}

// ContextFields returns a copy of the fields stored on ctx, or nil.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, ok := ctx.Value(contextFieldsKey).(map[string]any)
	if !ok || len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}
