package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, Execute(context.Background()))
	return out.String()
}

func TestDBList(t *testing.T) {
	out := run(t, "db", "ls")
	assert.Contains(t, out, " - postgres")
	assert.Contains(t, out, " - mysql")
	assert.Contains(t, out, " - sqlite")
}

func TestHashPassword(t *testing.T) {
	hash := strings.TrimSpace(run(t, "users", "hash", "hunter2"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestStorageCheckLocal(t *testing.T) {
	t.Setenv("ALBUM_AUTH_SECRET", "test-secret-key")
	t.Setenv("ALBUM_STORAGE_PROVIDER", "local")
	t.Setenv("ALBUM_STORAGE_PATH", t.TempDir())

	out := run(t, "storage", "check")
	assert.Contains(t, out, "Checking local storage...")
	assert.Contains(t, out, " - delete ok")
}
