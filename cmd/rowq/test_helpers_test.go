package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"rowq/internal/config"
	"rowq/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, extraTOML ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("ROWQ_DATABASE_DRIVER", "")

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(base, "rowq.toml")
	content := "[paths]\n" +
		"data_dir = \"" + cfg.Paths.DataDir + "\"\n" +
		"log_dir = \"" + cfg.Paths.LogDir + "\"\n" +
		strings.Join(extraTOML, "")
	testsupport.WriteFile(t, configPath, content)

	loaded, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return &cliTestEnv{cfg: loaded, configPath: configPath}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return env.runWithInput(t, "", args...)
}

func (env *cliTestEnv) runWithInput(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--config=" + env.configPath, "--env-file="}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("rowq %s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return stdout
}
