package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5000, cfg.CacheSize)
	assert.Equal(t, "dot", cfg.DotBinary)
	assert.False(t, cfg.Neo4jEnabled)
}

func TestLoad_OwnerIDs(t *testing.T) {
	t.Setenv("OWNER_IDS", "123, 456 ,789")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"123", "456", "789"}, cfg.OwnerIDs)
	assert.True(t, cfg.IsOwner("456"))
	assert.False(t, cfg.IsOwner("999"))
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("CACHE_SIZE", "-1")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate_Neo4jRequiredWhenEnabled(t *testing.T) {
	cfg := &Config{
		CacheSize:    100,
		DotBinary:    "dot",
		Neo4jEnabled: true,
		Neo4jURI:     "bolt://localhost:7687",
		Neo4jUser:    "neo4j",
	}
	require.Error(t, cfg.Validate(), "missing password should fail validation")

	cfg.Neo4jPassword = "secret"
	require.NoError(t, cfg.Validate())
}

func TestEnvBool(t *testing.T) {
	t.Setenv("NEO4J_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Neo4jEnabled)
}
