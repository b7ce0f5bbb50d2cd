package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"route":      "/api/v1/products",
		"method":     "GET",
		"user_id":    "u-1",
		"request_id": "r-1",
		"empty":      "",
		"operation":  strings.Repeat("x", MaxLabelValueLength+10),
	})

	assert.Equal(t, []string{
		"method", "GET",
		"operation", strings.Repeat("x", MaxLabelValueLength),
		"route", "/api/v1/products",
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestWithProfilingLabels(t *testing.T) {
	var route, role string
	WithProfilingLabels(context.Background(), map[string]string{
		ProfilingLabelRoute: "/api/v1/orders",
		ProfilingLabelRole:  "admin",
	}, func(ctx context.Context) {
		route, _ = pprof.Label(ctx, ProfilingLabelRoute)
		role, _ = pprof.Label(ctx, ProfilingLabelRole)
	})

	assert.Equal(t, "/api/v1/orders", route)
	assert.Equal(t, "admin", role)
}

func TestWithProfilingLabels_NoLabels(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), map[string]string{"user_id": "x"}, func(ctx context.Context) {
		called = true
		_, ok := pprof.Label(ctx, "user_id")
		assert.False(t, ok)
	})
	assert.True(t, called)
}
