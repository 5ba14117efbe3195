package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/session"
	"revoice/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seed creates sessions directly in the store the CLI will open.
func (e *cliTestEnv) seed(t *testing.T, ids ...string) {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	for _, id := range ids {
		testsupport.NewSession(t, store, id)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output %q does not name %s", out, target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[rate_search]") {
		t.Fatal("sample config missing rate_search section")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "Rate policy:   band") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigValidateRejectsBadPolicy(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.RateSearch.Policy = "sometimes"
	writeTestConfig(t, env.configPath, env.cfg)
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestSessionsListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sessions", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	if !strings.Contains(out, "No sessions") {
		t.Fatalf("expected empty listing, got %q", out)
	}

	env.seed(t, "alpha", "beta")

	out, _, err = runCLI(t, []string{"sessions", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	if !strings.Contains(out, "alpha") || !strings.Contains(out, "beta") {
		t.Fatalf("table missing sessions: %q", out)
	}

	out, _, err = runCLI(t, []string{"--json", "sessions", "list", "--status", "uploaded"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions list --json: %v", err)
	}
	var listing api.SessionListResponse
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Sessions) != 2 {
		t.Fatalf("listing = %+v", listing)
	}

	if _, _, err := runCLI(t, []string{"sessions", "list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status error")
	}

	out, _, err = runCLI(t, []string{"sessions", "show", "alpha"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions show: %v", err)
	}
	if !strings.Contains(out, "Session:   alpha") || !strings.Contains(out, "Status:    uploaded") {
		t.Fatalf("unexpected show output %q", out)
	}

	_, _, err = runCLI(t, []string{"sessions", "show", "missing"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionsDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, "gone")

	out, _, err := runCLI(t, []string{"sessions", "delete", "gone"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions delete: %v", err)
	}
	if !strings.Contains(out, "Deleted session gone") {
		t.Fatalf("unexpected output %q", out)
	}
	ws := session.NewWorkspace(env.cfg.Paths.SessionsDir, "gone")
	if _, err := os.Stat(ws.Root); !os.IsNotExist(err) {
		t.Fatalf("workspace should be removed, stat err = %v", err)
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, "one")

	out, _, err := runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status api.StatusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.SessionCounts["uploaded"] != 1 {
		t.Fatalf("counts = %v", status.SessionCounts)
	}
	names := map[string]bool{}
	for _, dep := range status.Dependencies {
		names[dep.Name] = true
	}
	if !names["FFmpeg"] || !names["FFprobe"] {
		t.Fatalf("dependencies = %+v", status.Dependencies)
	}
}

func TestStatusText(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"== Paths ==", "== Dependencies ==", "== Sessions ==", "Total:"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestUploadCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	video := filepath.Join(testsupport.BaseDir(env.cfg), "clip.mkv")
	testsupport.WriteFile(t, video, 32)

	out, _, err := runCLI(t, []string{"upload", "--name", "clip", video}, env.configPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(out, "Uploaded session clip (uploaded)") {
		t.Fatalf("unexpected output %q", out)
	}
	stored := filepath.Join(session.NewWorkspace(env.cfg.Paths.SessionsDir, "clip").OriginalDir(), "clip.mkv")
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("stored video: %v", err)
	}

	notes := filepath.Join(testsupport.BaseDir(env.cfg), "notes.txt")
	testsupport.WriteFile(t, notes, 8)
	if _, _, err := runCLI(t, []string{"upload", notes}, env.configPath); err == nil {
		t.Fatal("expected unsupported extension error")
	}
}

func TestTranslateRequiresTarget(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"translate", "demo"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "target") {
		t.Fatalf("expected missing target flag error, got %v", err)
	}
}

func TestStageOnUnknownSession(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"generate", "nobody"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}
