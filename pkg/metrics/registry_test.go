package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reg := InitRegistry()
	require.NotNil(t, reg)
	assert.True(t, IsEnabled())
	assert.Same(t, reg, InitRegistry(), "InitRegistry is idempotent")

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
