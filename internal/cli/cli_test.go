package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/testhub.net/internal/adapter/crypto"
	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/domain"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", config.DriverSQLite)
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "testhub.db"))
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("ARCHIVE_ENABLED", "false")
}

func TestMigrateAndImport(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date (sqlite)")

	fixture := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
modules:
  - name: auth
    cases:
      - title: login
        url: "{{base_url}}/login"
suites:
  - name: smoke
    cases:
      - {module: auth, case: login}
`), 0o600))

	out, err = run(t, "import", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 modules, 1 test cases, 1 suites")

	out, err = run(t, "reports", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No reports found")
}

func TestMigrateRefusesMemoryDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", config.DriverMemory)
	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestImportMissingFile(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "import", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestReportsShowValidatesID(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "reports", "show", "not-an-id")
	assert.Error(t, err)

	_, err = run(t, "reports", "show", uuid.NewString())
	assert.Error(t, err)
}

func TestWatchNeedsRedis(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", config.DriverMemory)
	t.Setenv("REDIS_ENABLED", "false")
	_, err := run(t, "reports", "watch")
	assert.ErrorContains(t, err, "REDIS_ENABLED")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ISSUER", "testhub")
	out, err := run(t, "token", "--subject", "ci", "--ttl", "5m")
	require.NoError(t, err)

	jwt := crypto.NewJWTService(&config.JwtConfig{Secret: "s3cret", Issuer: "testhub"})
	subject, err := jwt.VerifyTokenHMAC(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci", subject)

	t.Setenv("JWT_SECRET", "")
	_, err = run(t, "token")
	assert.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	report := &domain.TestReport{
		ID:         uuid.New(),
		SuiteName:  "smoke",
		Status:     domain.ReportStatusFailed,
		StartedAt:  started,
		FinishedAt: &finished,
		Results: []domain.CaseResult{
			{Title: "login", Status: domain.CaseStatusPassed, Method: "POST", URL: "http://api/login", StatusCode: 200, DurationMs: 12},
			{Title: "me", Status: domain.CaseStatusFailed, Method: "GET", URL: "http://api/me", StatusCode: 200,
				Assertions: []domain.AssertionResult{{Check: "json.name", Comparator: "equals", Message: "actual value bob does not satisfy equals alice"}}},
		},
		Summary: domain.ReportSummary{Total: 2, Passed: 1, Failed: 1},
	}

	var out bytes.Buffer
	printReport(&out, report)
	text := out.String()
	assert.Contains(t, text, "Status  FAILED")
	assert.Contains(t, text, "Took    1.5s")
	assert.Contains(t, text, "  1. [PASSED] login  POST http://api/login -> 200 (12ms)")
	assert.Contains(t, text, "json.name equals: actual value bob does not satisfy equals alice")
	assert.Contains(t, text, "2 total, 1 passed, 1 failed, 0 errored, 0 pending")

	out.Reset()
	printReportList(&out, []*domain.TestReport{report})
	assert.Contains(t, out.String(), "smoke")
	assert.Contains(t, out.String(), "1/2")
}
