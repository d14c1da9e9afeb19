package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	out, err := generateSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "NetSSPI Configuration", doc["title"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties")
	for _, key := range []string{"logging", "transport", "server", "provider"} {
		assert.Contains(t, props, key)
	}
}
