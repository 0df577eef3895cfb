package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `{
	"port": 8080,
	"ai": {"provider": "openai", "generate_model": "gpt-4o-mini", "embed_model": "text-embedding-3-small"}
}`

func TestLoadAppliesPolicyDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.Equal(t, "memory", cfg.Store.Type)
	require.Equal(t, 500, cfg.Chunking.ChunkSize)
	require.Equal(t, 50, cfg.Chunking.ChunkOverlap)
	require.Equal(t, "\n\n", cfg.Chunking.Separator)
	require.Equal(t, 0.35, cfg.Retrieval.MinScore)
	require.Equal(t, 0.5, cfg.Retrieval.HybridAlpha)
	require.Equal(t, 5, cfg.Retrieval.DefaultTopK)
	require.Equal(t, 50, cfg.Retrieval.MaxTopK)
	require.Equal(t, 50, cfg.History.Limit)
	require.Equal(t, 60, cfg.AI.Timeout)
}

func TestLoadChunkOverlapDefaulting(t *testing.T) {
	// explicit zero disables overlap
	cfg, err := Load(writeConfig(t, `{
		"port": 8080,
		"ai": {"provider": "openai", "generate_model": "m", "embed_model": "e"},
		"chunking": {"chunk_overlap": 0}
	}`))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Chunking.ChunkOverlap)

	// omitted overlap scales with the configured window
	cfg, err = Load(writeConfig(t, `{
		"port": 8080,
		"ai": {"provider": "openai", "generate_model": "m", "embed_model": "e"},
		"chunking": {"chunk_size": 200}
	}`))
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Chunking.ChunkOverlap)
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("ASKDOCS_TEST_KEY", "sk-from-env")
	cfg, err := Load(writeConfig(t, `{
		"port": 8080,
		"ai": {
			"provider": "openai",
			"generate_model": "gpt-4o-mini",
			"embed_model": "text-embedding-3-small",
			"data": {"api_key": "${ASKDOCS_TEST_KEY}"}
		}
	}`))
	require.NoError(t, err)

	data, ok := cfg.AI.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "sk-from-env", data["api_key"])
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing port",
			content: `{"ai": {"provider": "openai", "generate_model": "m", "embed_model": "e"}}`,
		},
		{
			name:    "missing provider",
			content: `{"port": 8080, "ai": {"generate_model": "m", "embed_model": "e"}}`,
		},
		{
			name:    "overlap not below chunk size",
			content: `{"port": 8080, "ai": {"provider": "openai", "generate_model": "m", "embed_model": "e"}, "chunking": {"chunk_size": 50, "chunk_overlap": 50}}`,
		},
		{
			name:    "min score out of range",
			content: `{"port": 8080, "ai": {"provider": "openai", "generate_model": "m", "embed_model": "e"}, "retrieval": {"min_score": 1.5}}`,
		},
		{
			name:    "unknown store type",
			content: `{"port": 8080, "ai": {"provider": "openai", "generate_model": "m", "embed_model": "e"}, "store": {"type": "redis"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}
