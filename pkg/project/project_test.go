package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hack-cli/hack/pkg/logs"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hack.yaml"), []byte(content), 0o644))
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
name: shop
branch: main
compose_file: compose/dev.yaml
profiles:
  - dev
loki:
  url: http://loki.internal:3100
logs:
  follow_backend: loki
  snapshot_backend: compose
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.Name)
	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, filepath.Join(dir, "compose", "dev.yaml"), cfg.ComposeFile)
	assert.Equal(t, []string{"dev"}, cfg.Profiles)
	assert.Equal(t, "http://loki.internal:3100", cfg.Loki.URL)
	assert.Equal(t, logs.BackendLoki, cfg.Logs.FollowBackend)
	assert.Equal(t, logs.BackendCompose, cfg.Logs.SnapshotBackend)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "name: shop\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "docker-compose.yaml"), cfg.ComposeFile)
	assert.Equal(t, DefaultLokiURL, cfg.Loki.URL)
	assert.Equal(t, logs.BackendCompose, cfg.Logs.FollowBackend)
	assert.Equal(t, logs.BackendCompose, cfg.Logs.SnapshotBackend)
}

func TestLoad_WalksUp(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "name: shop\n")
	nested := filepath.Join(dir, "services", "api")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.Name)
	assert.Equal(t, dir, cfg.Dir)
}

func TestLoad_MissingName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "branch: main\n")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "project name")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "no hack.yaml found")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "name: [unclosed\n")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "failed to parse")
}
