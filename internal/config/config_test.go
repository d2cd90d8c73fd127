package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/fscatalog/pkg/config/configloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: 8080
  maxHeaderBytes: 1048576
  timeout:
    read: 5s
    write: 10s
    idle: 60s
    readHeader: 2s
store:
  backend: file
  path: ./data/products.json
  readpolicy: lenient
log:
  level: info
shutdown:
  timeout: 10s
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileEnvFileAndEnvironment(t *testing.T) {
	// given
	dir := t.TempDir()
	configFile := writeFile(t, dir, "config.yaml", baseYAML)
	envFile := writeFile(t, dir, ".env", "CATALOG_STORE_READPOLICY=strict\nCATALOG_LOG_LEVEL=debug\n")
	t.Setenv("CATALOG_LOG_LEVEL", "warn")

	// when
	cfg, err := configloader.LoadFrom[*Config]("catalog", configFile, envFile)

	// then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPServer.Port)
	assert.Equal(t, 2*time.Second, cfg.HTTPServer.Timeout.ReadHeader)
	assert.Equal(t, "./data/products.json", cfg.Store.Path)
	assert.Equal(t, "strict", cfg.Store.ReadPolicy, ".env overrides yaml")
	assert.Equal(t, "warn", cfg.Log.Level, "environment overrides .env")
	assert.Contains(t, cfg.String(), "--- Store ---")
}

func TestLoad_ValidationFailures(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"CATALOG_STORE_BACKEND": "s3"}},
		{name: "bad read policy", env: map[string]string{"CATALOG_STORE_READPOLICY": "paranoid"}},
		{name: "bad port", env: map[string]string{"CATALOG_SERVER_PORT": "70000"}},
		{name: "bad log level", env: map[string]string{"CATALOG_LOG_LEVEL": "loud"}},
		{name: "nats without url", env: map[string]string{"CATALOG_NATS_ENABLED": "true"}},
		{name: "grpc without port", env: map[string]string{"CATALOG_GRPC_ENABLED": "true"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			configFile := writeFile(t, dir, "config.yaml", baseYAML)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := configloader.LoadFrom[*Config]("catalog", configFile, filepath.Join(dir, "missing.env"))

			assert.ErrorContains(t, err, "config validation failed")
		})
	}
}
