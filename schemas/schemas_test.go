package schemas

import (
	"encoding/json"
	"testing"

	"github.com/jonathan/api-harvester/internal/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarvesterConfig_ValidJSON(t *testing.T) {
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(HarvesterConfig), &v))
	assert.Equal(t, "object", v["type"])
}

func TestHarvesterConfig_Documents(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantError bool
	}{
		{name: "empty object", doc: `{}`},
		{
			name: "full document",
			doc: `{
				"credentials": "APIFetchData.csv",
				"credentials_encoding": "cp1252",
				"freshness_window": "720h",
				"timeout": "30s",
				"backoff": {"policy": "exponential", "base": "500ms", "max": "10s"},
				"index": {"mode": "file", "path": "state/index.json"},
				"keywords": {"input": "keywords.csv", "max_attempts": 5, "daily_limit": 5},
				"domains": {"endpoints": ["API_Ninja_DNS"], "daily_limit": 0},
				"backup": {"source_dir": ".", "archive_prefix": "PythonTraining"}
			}`,
		},
		{name: "unknown field", doc: `{"retries": 3}`, wantError: true},
		{name: "bad duration", doc: `{"timeout": "thirty seconds"}`, wantError: true},
		{name: "bad index mode", doc: `{"index": {"mode": "redis"}}`, wantError: true},
		{name: "negative limit", doc: `{"keywords": {"daily_limit": -1}}`, wantError: true},
		{name: "bad encoding", doc: `{"credentials_encoding": "latin-9"}`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schemas.ValidateBytes(HarvesterConfig, []byte(tt.doc))
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
