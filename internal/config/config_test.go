package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Probe.Count != 4 {
		t.Errorf("Probe.Count = %d, want 4", cfg.Probe.Count)
	}
	if cfg.Probe.Interval != 100*time.Millisecond {
		t.Errorf("Probe.Interval = %v, want 100ms", cfg.Probe.Interval)
	}
	if cfg.Probe.Timeout != 2*time.Second {
		t.Errorf("Probe.Timeout = %v, want 2s", cfg.Probe.Timeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestParse_ValidConfig(t *testing.T) {
	yamlConfig := `
probe:
  count: 10
  interval: 250ms
  timeout: 500ms
  fixed_sequence: true
log:
  level: debug
  format: json
metrics:
  enabled: true
  address: ":9200"
  path: /probe-metrics
`
	cfg, err := Parse([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Probe.Count != 10 {
		t.Errorf("Probe.Count = %d, want 10", cfg.Probe.Count)
	}
	if cfg.Probe.Interval != 250*time.Millisecond {
		t.Errorf("Probe.Interval = %v, want 250ms", cfg.Probe.Interval)
	}
	if cfg.Probe.Timeout != 500*time.Millisecond {
		t.Errorf("Probe.Timeout = %v, want 500ms", cfg.Probe.Timeout)
	}
	if !cfg.Probe.FixedSequence {
		t.Error("Probe.FixedSequence = false, want true")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9200" || cfg.Metrics.Path != "/probe-metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}

	icmpCfg := cfg.ICMP()
	if icmpCfg.Timeout != 500*time.Millisecond || !icmpCfg.FixedSequence {
		t.Errorf("ICMP() = %+v", icmpCfg)
	}
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("probe:\n  count: 2\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Probe.Count != 2 {
		t.Errorf("Probe.Count = %d, want 2", cfg.Probe.Count)
	}
	if cfg.Probe.Timeout != 2*time.Second {
		t.Errorf("Probe.Timeout = %v, want default 2s", cfg.Probe.Timeout)
	}
}

func TestParse_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"zero count", "probe:\n  count: 0\n", "probe.count"},
		{"negative interval", "probe:\n  interval: -1s\n", "probe.interval"},
		{"zero timeout", "probe:\n  timeout: 0s\n", "timeout must be positive"},
		{"bad log level", "log:\n  level: verbose\n", "log.level"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
		{"metrics without address", "metrics:\n  enabled: true\n  address: \"\"\n", "metrics.address"},
		{"metrics bad path", "metrics:\n  enabled: true\n  path: metrics\n", "metrics.path"},
		{"malformed yaml", "probe: [", "failed to parse config"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Probe.Count = 0
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if !strings.Contains(err.Error(), "probe.count") || !strings.Contains(err.Error(), "log.level") {
		t.Errorf("error should list both problems, got: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PICMP_TEST_TIMEOUT", "750ms")
	t.Setenv("PICMP_TEST_LEVEL", "warn")

	tests := []struct {
		input string
		want  string
	}{
		{"${PICMP_TEST_TIMEOUT}", "750ms"},
		{"$PICMP_TEST_LEVEL", "warn"},
		{"${PICMP_TEST_UNSET:-3s}", "3s"},
		{"${PICMP_TEST_LEVEL:-info}", "warn"},
		{"$PICMP_TEST_UNSET", "$PICMP_TEST_UNSET"},
		{"no vars", "no vars"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := expandEnvVars(tc.input); got != tc.want {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("PICMP_TEST_COUNT", "7")

	cfg, err := Parse([]byte("probe:\n  count: ${PICMP_TEST_COUNT}\n  timeout: ${PICMP_TEST_UNSET:-1s}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Probe.Count != 7 {
		t.Errorf("Probe.Count = %d, want 7", cfg.Probe.Count)
	}
	if cfg.Probe.Timeout != time.Second {
		t.Errorf("Probe.Timeout = %v, want 1s", cfg.Probe.Timeout)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "picmp.yaml")
	if err := os.WriteFile(path, []byte("probe:\n  count: 3\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Probe.Count != 3 {
		t.Errorf("Probe.Count = %d, want 3", cfg.Probe.Count)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %v, want read failure", err)
	}
}

func TestString(t *testing.T) {
	out := Default().String()
	for _, want := range []string{"probe:", "count: 4", "log:", "metrics:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
}
