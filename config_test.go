package pipesql_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mickamy/pipesql"
	_ "github.com/mickamy/pipesql/dialect/opengauss"
)

const configYAML = `
databaseType: openGauss
schema: public
conditionColumns:
  t_order: [user_id]
lanes: 4
requireUpsert: true
redact: [password]
`

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := pipesql.LoadConfig(strings.NewReader(configYAML))
	require.NoError(t, err)
	assert.Equal(t, pipesql.Config{
		DatabaseType:     "openGauss",
		Schema:           "public",
		ConditionColumns: map[string][]string{"t_order": {"user_id"}},
		PageSize:         1000,
		Lanes:            4,
		RequireUpsert:    true,
		Redact:           []string{"password"},
	}, cfg)

	e, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, pipesql.OpenGauss, e.Dialect().Name())

	ac := cfg.ApplierConfig(zap.NewNop())
	assert.Equal(t, "public", ac.Schema)
	assert.Equal(t, 4, ac.Lanes)
	assert.True(t, ac.RequireUpsert)
	require.Contains(t, ac.Redact, "password")
	assert.Equal(t, "[REDACTED]", ac.Redact["password"]("password", "hunter2"))

	dc := cfg.DumperConfig(nil)
	assert.Equal(t, "public", dc.Schema)
	assert.Equal(t, 1000, dc.PageSize)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: ""},
		{name: "missing database type", yaml: "schema: public\n"},
		{name: "unknown key", yaml: "databaseType: MySQL\nbatchSize: 10\n"},
		{name: "malformed", yaml: "databaseType: [\n"},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := pipesql.LoadConfig(strings.NewReader(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_UnknownDialect(t *testing.T) {
	t.Parallel()

	cfg, err := pipesql.LoadConfig(strings.NewReader("databaseType: Oracle\n"))
	require.NoError(t, err)
	_, err = cfg.Engine()
	assert.ErrorIs(t, err, pipesql.ErrUnknownDialect)
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipesql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := pipesql.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openGauss", cfg.DatabaseType)

	_, err = pipesql.LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
