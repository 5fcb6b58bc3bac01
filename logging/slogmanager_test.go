package logging_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"devspace-operator/interfaces"
	"devspace-operator/logging"

	"github.com/stretchr/testify/assert"
)

// compile time check
func TestSlogManagerAdheresToLogManagerInterface(t *testing.T) {
	t.Parallel()
	testfunc := func(w interfaces.LogManager) {}
	testfunc(logging.NewSlogManager(t.TempDir(), slog.LevelInfo))
}

func TestCreateLoggerTwicePanics(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	m := logging.NewSlogManager(t.TempDir(), slog.LevelInfo)
	m.CreateLogger("core")
	assert.Panics(func() { m.CreateLogger("core") })
}

func TestGetLoggerReturnsExisting(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	m := logging.NewSlogManager(t.TempDir(), slog.LevelInfo)
	created := m.CreateLogger("api")

	got, err := m.GetLogger("api")
	assert.NoError(err)
	assert.Same(created, got)

	_, err = m.GetLogger("unknown")
	assert.Error(err)
}

func TestSecretsAreRedactedInLogfiles(t *testing.T) {
	logDir := t.TempDir()
	m := logging.NewSlogManager(logDir, slog.LevelError+4) // keep stderr quiet

	logging.AddSecret("super-secret-credential")
	logger := m.CreateLogger("redaction")
	logger.Info("created workspace", "accessToken", "super-secret-credential")

	data, err := os.ReadFile(filepath.Join(logDir, "redaction.log"))
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret-credential")
	assert.True(t, strings.Contains(string(data), logging.REDACTED))
}
