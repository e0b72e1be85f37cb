package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `db_path: /tmp/from-config.db
server:
  addr: 0.0.0.0:9000
fields:
  entity: country
  vote: vote
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("GALIGN_DB", "/tmp/from-env.db")
	t.Setenv("GALIGN_FIELD_VOTE", "ballot")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: cfgPath,
		CLIDBPath:  "/tmp/from-cli.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.DBPath.Source != SourceCLI || resolved.DBPath.Value != "/tmp/from-cli.db" {
		t.Fatalf("expected DB path from cli, got %+v", resolved.DBPath)
	}
	if resolved.Addr.Source != SourceConfig || resolved.Addr.Value != "0.0.0.0:9000" {
		t.Fatalf("expected addr from config, got %+v", resolved.Addr)
	}
	if resolved.VoteField.Source != SourceEnv {
		t.Fatalf("expected vote field from env, got %s", resolved.VoteField.Source)
	}
	if resolved.ResolutionField.Source != SourceDefault {
		t.Fatalf("expected resolution field default, got %s", resolved.ResolutionField.Source)
	}

	f := resolved.Fields()
	if f.Resolution != "resolution" || f.Entity != "country" || f.Vote != "ballot" {
		t.Fatalf("unexpected fields: %+v", f)
	}
}

func TestResolveConfig_MissingFileUsesDefaults(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.Addr.Value != DefaultAddr || resolved.Addr.Source != SourceDefault {
		t.Fatalf("unexpected addr: %+v", resolved.Addr)
	}
	if resolved.DBPath.Value != "" {
		t.Fatalf("expected empty DB path, got %q", resolved.DBPath.Value)
	}
	if f := resolved.Fields(); f.Entity != "ms_name" {
		t.Fatalf("unexpected fields: %+v", f)
	}
}

func TestResolveConfig_InvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("fields: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	if err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestResolveConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(home, "none.yaml"),
		CLIDBPath:  "~/runs.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.DBPath.Value != filepath.Join(home, "runs.db") {
		t.Fatalf("expected expanded path, got %q", resolved.DBPath.Value)
	}
}
