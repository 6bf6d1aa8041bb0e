package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// isolate runs the test in an empty directory with no config file or .env in
// reach.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, k := range []string{"ENDPOINT", "USER_ID", "FORMAT", "DEVICE", "LOG_PATH", "TIMEOUT", "BEEP", "FETCH_ON_START", "MIN_DURATION"} {
		t.Setenv("STUDYMATE_"+k, "")
		os.Unsetenv("STUDYMATE_" + k)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	os.WriteFile(path, []byte("endpoint: https://api.example.com/notes\nformat: flac\ntimeout: 5s\nbeep: false\n"), 0644)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint != "https://api.example.com/notes" || cfg.Format != "flac" || cfg.Timeout != 5*time.Second || cfg.Beep {
		t.Errorf("got %+v", cfg)
	}
	if cfg.UserID != "studymate_user" {
		t.Errorf("default user id lost: %q", cfg.UserID)
	}
}

func TestLoadSearchPath(t *testing.T) {
	dir := isolate(t)
	os.WriteFile(filepath.Join(dir, "studymate.yaml"), []byte("user_id: from-file\n"), 0644)
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UserID != "from-file" {
		t.Errorf("user id = %q", cfg.UserID)
	}
}

func TestPrecedence(t *testing.T) {
	dir := isolate(t)
	os.WriteFile(filepath.Join(dir, "studymate.yaml"), []byte("endpoint: http://file\nuser_id: file\nformat: flac\n"), 0644)
	os.WriteFile(filepath.Join(dir, ".env"), []byte("STUDYMATE_USER_ID=dotenv\nSTUDYMATE_DEVICE=USB Mic\n"), 0644)
	t.Setenv("STUDYMATE_ENDPOINT", "http://env")
	t.Cleanup(func() {
		os.Unsetenv("STUDYMATE_USER_ID")
		os.Unsetenv("STUDYMATE_DEVICE")
	})

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--endpoint", "http://flag"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint != "http://flag" {
		t.Errorf("endpoint = %q, want flag value", cfg.Endpoint)
	}
	if cfg.UserID != "dotenv" {
		t.Errorf("user id = %q, want .env value", cfg.UserID)
	}
	if cfg.Device != "USB Mic" {
		t.Errorf("device = %q", cfg.Device)
	}
	if cfg.Format != "flac" {
		t.Errorf("unset flag overrode file: format = %q", cfg.Format)
	}
}

func TestLoadBadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte("endpoint: [unterminated\n"), 0644)
	if _, err := Load(path, nil); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Endpoint = "https://api.example.com/notes"
		return c
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint is required"},
		{"bad scheme", func(c *Config) { c.Endpoint = "ftp://x" }, "scheme"},
		{"no host", func(c *Config) { c.Endpoint = "http://" }, "no host"},
		{"bad format", func(c *Config) { c.Format = "mp3" }, "format"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"empty user", func(c *Config) { c.UserID = "" }, "user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	c := &Config{Format: "ogg"}
	err := c.Validate()
	for _, want := range []string{"endpoint", "format", "timeout", "user_id"} {
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}
