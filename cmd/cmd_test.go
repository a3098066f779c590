package cmd

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jandubois/clinicprobe/internal/config"
	"github.com/jandubois/clinicprobe/internal/stub"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{config.EnvConfig, config.EnvBaseURL, config.EnvStore, config.EnvStoreKey, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--no-color"}, args...))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStoreLoadThenSummary(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cache.db")
	listPath := filepath.Join(dir, "patients.json")
	require.NoError(t, os.WriteFile(listPath, []byte(`[{"name":"Ana","totalFee":120}]`), 0o600))

	_, _, err := execute(t, "--store", dbPath, "store", "load", listPath)
	require.NoError(t, err)

	stdout, stderr, err := execute(t, "--store", dbPath, patientSummaryName())
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "ok", result["status"])
	assert.Contains(t, stderr, "count=1")
	assert.Contains(t, stderr, "totalFee=120")
}

func TestSummaryWithoutStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "absent.db")

	stdout, stderr, err := execute(t, "--store", dbPath, patientSummaryName())
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status":"ok"`)
	assert.Contains(t, stderr, "count=0")

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "the summary probe must not create the cache")
}

func TestRunAgainstStub(t *testing.T) {
	srv := httptest.NewServer(stub.NewServer(&config.StubConfig{}).Handler())
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "absent.db")
	stdout, _, err := execute(t,
		"--base-url", srv.URL,
		"--store", dbPath,
		"run", "--strict",
		"--patient-id", "p-1",
		"--path", "xray=tmp/a.png",
	)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader([]byte(stdout)))
	seen := map[string]string{}
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		seen[line["probe"].(string)] = line["status"].(string)
	}
	assert.Equal(t, map[string]string{
		"health-upload":   "ok",
		"patient-summary": "ok",
		"file-relocation": "ok",
	}, seen)
}

func patientSummaryName() string {
	return patientSummaryCmd.Use
}

func TestVersionIgnoresInvalidConfig(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "ftp://nowhere")
	t.Cleanup(func() { rootCmd.Flags().Set("version", "false") })

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--no-color", "--version"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "clinicprobe version "+Version)
}

func TestSubcommandRejectsInvalidConfig(t *testing.T) {
	t.Cleanup(func() { rootCmd.PersistentFlags().Set("base-url", config.Default().BaseURL) })

	_, _, err := execute(t, "--base-url", "ftp://nowhere", "--store", filepath.Join(t.TempDir(), "cache.db"), healthUploadCmd.Name())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be http or https")
}
