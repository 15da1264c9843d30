package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearEnv blanks every CLD_* override so a test sees only what it sets.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLD_DATA_DIR", "CLD_KEY_FILE", "CLD_CHAIN_NAME",
		"CLD_LOG_LEVEL", "CLD_ENV", "CLD_MAX_BACKUPS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.DataDir != "cld-data" {
		t.Errorf("Got data dir %q, want %q", c.DataDir, "cld-data")
	}
	if c.ChainName != "courseledger" {
		t.Errorf("Got chain name %q, want %q", c.ChainName, "courseledger")
	}
	if c.LogLevel != "info" || c.Env != "dev" {
		t.Errorf("Got log level %q env %q, want info/dev", c.LogLevel, c.Env)
	}
	if c.MaxBackups != 20 {
		t.Errorf("Got max backups %d, want 20", c.MaxBackups)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	c, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.DataDir != "cld-data" {
		t.Errorf("Got data dir %q for a missing file, want defaults", c.DataDir)
	}
}

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "cld.json")
	body := `{"data_dir": "/var/lib/cld", "log_level": "debug", "max_backups": 3}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.DataDir != "/var/lib/cld" {
		t.Errorf("Got data dir %q, want the file value", c.DataDir)
	}
	if c.LogLevel != "debug" {
		t.Errorf("Got log level %q, want %q", c.LogLevel, "debug")
	}
	if c.MaxBackups != 3 {
		t.Errorf("Got max backups %d, want 3", c.MaxBackups)
	}
	// Fields the file omits keep their defaults.
	if c.ChainName != "courseledger" || c.Env != "dev" {
		t.Errorf("Got chain %q env %q, want defaults for omitted fields", c.ChainName, c.Env)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "cld.json")
	if err := os.WriteFile(path, []byte(`{"data_dir": "from-file"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CLD_DATA_DIR", "from-env")
	t.Setenv("CLD_LOG_LEVEL", "warn")
	t.Setenv("CLD_MAX_BACKUPS", "7")

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.DataDir != "from-env" {
		t.Errorf("Got data dir %q, want the env value", c.DataDir)
	}
	if c.LogLevel != "warn" {
		t.Errorf("Got log level %q, want %q", c.LogLevel, "warn")
	}
	if c.MaxBackups != 7 {
		t.Errorf("Got max backups %d, want 7", c.MaxBackups)
	}
}

func TestBadMaxBackupsEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLD_MAX_BACKUPS", "not-a-number")

	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.MaxBackups != 20 {
		t.Errorf("Got max backups %d, want the default 20", c.MaxBackups)
	}
}

func TestGetReturnsLoadedConfig(t *testing.T) {
	clearEnv(t)

	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if Get() != c {
		t.Error("Get returned a different config than LoadConfig")
	}
}
