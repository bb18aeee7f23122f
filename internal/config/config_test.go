package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  type: sqlite
  path: /tmp/albums.db
auth:
  secret: a-long-secret
  users:
    alice: "$2a$10$abcdefghijklmnopqrstuu"
`), 0o644))
	t.Setenv("ALBUM_SERVER_ENV", "test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.Equal(t, "/tmp/albums.db", cfg.Database.DSN())
	assert.Contains(t, cfg.Auth.Users, "alice")
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Database.Type = "oracle"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Storage.Provider = "s3"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Auth.Secret = "short"
	assert.Error(t, bad.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Type: "mysql", User: "u", Password: "p", Host: "h", Port: 3306, Name: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=True&loc=UTC", d.DSN())

	d.Type = "postgres"
	d.Port = 5432
	d.SSLMode = "disable"
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=db sslmode=disable", d.DSN())
}
