package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
)

// writeTestConfig writes a minimal valid config file and returns its path.
// Defaults fill everything not listed here.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	content := `
database:
  user: claims
auth:
  token_secret: cli-test-secret
jobs:
  trigger_secret: cli-job-secret
log:
  output_paths: ["stderr"]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// runCommand executes the root command with args and returns captured output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestNewRootCommand_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["jobs"])
	assert.True(t, names["token"])
}

func TestRootCommand_FailsWithoutValidConfig(t *testing.T) {
	content := "database:\n  user: claims\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Missing auth.token_secret and jobs.trigger_secret.
	_, err := runCommand(t, "-c", path, "token", "issue", "--user", "u1", "--role", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestTokenIssueAndInspect(t *testing.T) {
	path := writeTestConfig(t)

	out, err := runCommand(t, "-c", path,
		"token", "issue", "--user", "user-1", "--provider", "prov-1", "--role", "provider")
	require.NoError(t, err)

	raw := strings.TrimSpace(out)
	require.NotEmpty(t, raw)

	out, err = runCommand(t, "-c", path, "token", "inspect", raw)
	require.NoError(t, err)

	var claims token.Claims
	require.NoError(t, json.Unmarshal([]byte(out), &claims))
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "prov-1", claims.ProviderID)
	assert.Equal(t, token.RoleProvider, claims.Role)
}

func TestTokenIssue_RejectsUnknownRole(t *testing.T) {
	path := writeTestConfig(t)

	_, err := runCommand(t, "-c", path, "token", "issue", "--user", "u1", "--role", "superuser")
	require.Error(t, err)
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	path := writeTestConfig(t)

	_, err := runCommand(t, "-c", path, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be >= 1")
}

func TestGetCLIContext_Uninitialized(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())

	_, err := GetCLIContext(cmd)
	require.Error(t, err)
}
