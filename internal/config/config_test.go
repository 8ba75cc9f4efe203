package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// chdir moves into an empty temp dir so no configs/config.yml or .env leaks in.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BucketName != "rpi-thermal-camera" {
		t.Errorf("bucket = %q", cfg.BucketName)
	}
	if cfg.MinTemp != 18 || cfg.MaxTemp != 32 {
		t.Errorf("temps = %v..%v", cfg.MinTemp, cfg.MaxTemp)
	}
	if cfg.Cooldown != 10*time.Second || cfg.StartupDelay != 7*time.Second {
		t.Errorf("cooldown=%v startup=%v", cfg.Cooldown, cfg.StartupDelay)
	}
	if cfg.SensorRate != 15 || cfg.FrameRate != 15 {
		t.Errorf("rates = %d/%d", cfg.SensorRate, cfg.FrameRate)
	}
	if cfg.Probe.Host != "8.8.8.8" || cfg.Probe.Port != 53 || cfg.Probe.Timeout != time.Second {
		t.Errorf("probe = %+v", cfg.Probe)
	}
	if cfg.Storage.UploadTimeout != 30*time.Second {
		t.Errorf("upload timeout = %v", cfg.Storage.UploadTimeout)
	}
	home, _ := os.UserHomeDir()
	if cfg.JSONPath != filepath.Join(home, ".doorman.json") {
		t.Errorf("json path = %q", cfg.JSONPath)
	}
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	chdir(t)
	t.Setenv("BUCKET_NAME", "door-bucket")
	t.Setenv("JSON_PATH", "/tmp/status.json")
	t.Setenv("DOORMAN_MAX_TEMP", "30.5")
	t.Setenv("DOORMAN_PROBE_PORT", "443")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BucketName != "door-bucket" || cfg.JSONPath != "/tmp/status.json" {
		t.Errorf("legacy env not applied: %+v", cfg)
	}
	if cfg.MaxTemp != 30.5 || cfg.Probe.Port != 443 {
		t.Errorf("prefixed env not applied: max=%v port=%d", cfg.MaxTemp, cfg.Probe.Port)
	}
}

func TestLoad_FilePrecedence(t *testing.T) {
	dir := chdir(t)
	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := "max_temp: 34\ncooldown: 5s\nport: \"9090\"\nstorage:\n  dir: /var/doorman\n"
	if err := os.WriteFile(filepath.Join(dir, "configs", "config.yml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOORMAN_PORT", "7070")

	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse([]string{"--cooldown=3s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxTemp != 34 || cfg.Storage.Dir != "/var/doorman" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Port != "7070" {
		t.Errorf("env should beat file, port = %q", cfg.Port)
	}
	if cfg.Cooldown != 3*time.Second {
		t.Errorf("flag should beat file, cooldown = %v", cfg.Cooldown)
	}
	// untouched flags do not mask defaults
	if cfg.MinTemp != 18 {
		t.Errorf("min temp = %v", cfg.MinTemp)
	}
}

func TestLoad_ZeroThresholdFromFlags(t *testing.T) {
	chdir(t)
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse([]string{"--max=0", "--min=-5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxTemp != 0 || cfg.MinTemp != -5 {
		t.Fatalf("temps = %v..%v, want -5..0", cfg.MinTemp, cfg.MaxTemp)
	}
}

func TestLoad_ExplicitMissingFileIsAnError(t *testing.T) {
	chdir(t)
	if _, err := Load(viper.New(), "nope.yml"); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvFiles_Overlay(t *testing.T) {
	dir := chdir(t)
	t.Setenv("BUCKET_NAME", "from-process")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BUCKET_NAME=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := LoadEnvFiles(nil)
	if len(loaded) != 1 || loaded[0] != ".env" {
		t.Fatalf("loaded = %v", loaded)
	}
	if got := os.Getenv("BUCKET_NAME"); got != "from-dotenv" {
		t.Fatalf("BUCKET_NAME = %q, want overlay value", got)
	}
}

func TestValidate(t *testing.T) {
	base := Config{MinTemp: 18, MaxTemp: 32, Cooldown: time.Second, SensorRate: 15, FrameRate: 15, JSONPath: "s.json", Probe: ProbeConfig{Port: 53}, Storage: StorageConfig{UploadTimeout: time.Second}}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"inverted range", func(c *Config) { c.MaxTemp = 10 }, "max_temp"},
		{"zero cooldown", func(c *Config) { c.Cooldown = 0 }, "cooldown"},
		{"zero rate", func(c *Config) { c.FrameRate = 0 }, "frame_rate"},
		{"no status path", func(c *Config) { c.JSONPath = "" }, "json_path"},
		{"bad probe port", func(c *Config) { c.Probe.Port = 70000 }, "probe.port"},
		{"zero upload timeout", func(c *Config) { c.Storage.UploadTimeout = 0 }, "upload_timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestTickAndExpandHome(t *testing.T) {
	if got := Tick(15); got != time.Second/15 {
		t.Errorf("Tick(15) = %v", got)
	}
	if got := Tick(0); got != 0 {
		t.Errorf("Tick(0) = %v", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
	home, _ := os.UserHomeDir()
	if got := ExpandHome("~/x.json"); got != filepath.Join(home, "x.json") {
		t.Errorf("ExpandHome = %q", got)
	}
}
