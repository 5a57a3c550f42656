package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat/internal/config"
	"github.com/Tyrowin/gochat/internal/credentials"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := GetRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	t.Cleanup(func() {
		cmd.SetArgs(nil)
		cfgFile = ""
		versionShort = false
	})

	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	Version = "1.2.3"
	t.Cleanup(func() { Version = "dev" })

	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)

	versionShort = false
	out, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gochat 1.2.3")
	assert.Contains(t, out, "Go version:")
}

func TestCheckCredentialsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, os.WriteFile(path, []byte("alice:secret\nbob:x\nnocolon\nbob:hunter2\n"), 0600))

	out, err := run(t, "check-credentials", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+": 2 users")
	assert.Contains(t, out, "duplicate usernames (last entry wins): bob")
	assert.Contains(t, out, "lines without a colon (ignored): 3")
}

func TestCheckCredentialsUsesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	users := filepath.Join(dir, "users.txt")
	require.NoError(t, os.WriteFile(users, []byte("alice:secret\n"), 0600))
	t.Setenv("GOCHAT_CHAT_CREDENTIALS_FILE", users)

	out, err := run(t, "check-credentials")
	require.NoError(t, err)
	assert.Contains(t, out, users+": 1 users")
}

func TestCheckCredentialsMissingFile(t *testing.T) {
	_, err := run(t, "check-credentials", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrSourceUnreadable)
}

// resetStartFlags clears start flag values so tests do not leak into each other.
func resetStartFlags(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"port", "credentials", "log-level"} {
			f := startCmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
}

func TestStartFailsWithoutCredentials(t *testing.T) {
	resetStartFlags(t)
	_, err := run(t, "start", "--credentials", filepath.Join(t.TempDir(), "missing.txt"), "--port", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrSourceUnreadable)
}

func TestApplyFlags(t *testing.T) {
	resetStartFlags(t)
	cfg := config.Default()
	require.NoError(t, startCmd.Flags().Set("port", "4000"))
	require.NoError(t, startCmd.Flags().Set("log-level", "debug"))

	require.NoError(t, applyFlags(startCmd, cfg))
	assert.Equal(t, 4000, cfg.Chat.Port)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "users.txt", cfg.Chat.CredentialsFile)
}
