package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// parse binds the watchdog flags to a fresh flag set and parses args the way
// the root command does (flags stop at the first positional argument).
func parse(t *testing.T, args ...string) (*Flags, []string) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	f := BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return f, fs.Args()
}

// =============================================================================
// Defaults
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Delay != time.Second {
		t.Errorf("Delay = %v, want 1s", cfg.Delay)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, metrics should be disabled by default", cfg.MetricsAddr)
	}
	if cfg.Stdin != "" || cfg.Stdout != "" || cfg.Stderr != "" {
		t.Error("streams should be inherited by default")
	}
}

func TestConfig_Redirects(t *testing.T) {
	cfg := &Config{Stdin: "in", Stdout: "out", Stderr: "err"}
	r := cfg.Redirects()

	if r.Stdin != "in" || r.Stdout != "out" || r.Stderr != "err" {
		t.Errorf("Redirects() = %+v", r)
	}
}

// =============================================================================
// Environment
// =============================================================================

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	ApplyEnv(cfg, envMap(map[string]string{
		EnvLogLevel:    "debug",
		EnvLogFormat:   "json",
		EnvMetricsAddr: "127.0.0.1:9999",
	}))

	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" || cfg.MetricsAddr != "127.0.0.1:9999" {
		t.Errorf("ApplyEnv did not override: %+v", cfg)
	}
}

func TestApplyEnv_EmptyIgnored(t *testing.T) {
	cfg := DefaultConfig()
	ApplyEnv(cfg, envMap(map[string]string{EnvLogLevel: ""}))

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, empty env value should be ignored", cfg.LogLevel)
	}
}

// =============================================================================
// Config file
// =============================================================================

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "watchdog.yaml", `
executable: /usr/local/bin/app
args: ["--port", "8080"]
stdin: /dev/null
stdout: /tmp/app.out
stderr: /tmp/app.err
delay_ms: 250
log_format: json
log_level: warn
metrics_addr: 127.0.0.1:17092
metrics_textfile: /tmp/watchdog.prom
`)

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	want := Config{
		Executable:      "/usr/local/bin/app",
		Args:            []string{"--port", "8080"},
		Stdin:           "/dev/null",
		Stdout:          "/tmp/app.out",
		Stderr:          "/tmp/app.err",
		Delay:           250 * time.Millisecond,
		LogFormat:       "json",
		LogLevel:        "warn",
		MetricsAddr:     "127.0.0.1:17092",
		MetricsTextfile: "/tmp/watchdog.prom",
		ConfigFile:      path,
	}
	if cfg.Executable != want.Executable || strings.Join(cfg.Args, " ") != strings.Join(want.Args, " ") {
		t.Errorf("child = %q %v", cfg.Executable, cfg.Args)
	}
	if cfg.Stdin != want.Stdin || cfg.Stdout != want.Stdout || cfg.Stderr != want.Stderr {
		t.Errorf("redirects = %+v", cfg.Redirects())
	}
	if cfg.Delay != want.Delay {
		t.Errorf("Delay = %v, want %v", cfg.Delay, want.Delay)
	}
	if cfg.LogFormat != want.LogFormat || cfg.LogLevel != want.LogLevel {
		t.Errorf("logging = %q/%q", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.MetricsAddr != want.MetricsAddr || cfg.MetricsTextfile != want.MetricsTextfile {
		t.Errorf("metrics = %q/%q", cfg.MetricsAddr, cfg.MetricsTextfile)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := writeFile(t, "partial.yaml", "executable: app\n")

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Delay != time.Second || cfg.LogFormat != "text" {
		t.Errorf("unset fields changed: delay=%v format=%q", cfg.Delay, cfg.LogFormat)
	}
}

func TestLoadFile_Empty(t *testing.T) {
	path := writeFile(t, "empty.yaml", "")

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Errorf("empty file should load cleanly: %v", err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "executable: app\nrestarts: 3\n", "restarts"},
		{"wrong type", "delay_ms: soon\n", "cannot unmarshal"},
		{"bad yaml", "executable: [unterminated\n", "parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.yaml", tt.content)
			err := LoadFile(DefaultConfig(), path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	err := LoadFile(DefaultConfig(), filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

// =============================================================================
// Flags and precedence
// =============================================================================

func TestBindFlags_Shorthands(t *testing.T) {
	f, rest := parse(t, "-i", "in.txt", "-o", "out.log", "-e", "err.log", "-t", "250", "app", "-x", "--flag")

	cfg, err := Load(f, rest, noEnv)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Stdin != "in.txt" || cfg.Stdout != "out.log" || cfg.Stderr != "err.log" {
		t.Errorf("redirects = %+v", cfg.Redirects())
	}
	if cfg.Delay != 250*time.Millisecond {
		t.Errorf("Delay = %v, want 250ms", cfg.Delay)
	}
	if cfg.Executable != "app" {
		t.Errorf("Executable = %q, want app", cfg.Executable)
	}
	// Flags after the executable belong to the child.
	if strings.Join(cfg.Args, " ") != "-x --flag" {
		t.Errorf("Args = %v, want [-x --flag]", cfg.Args)
	}
}

func TestBindFlags_DoubleDash(t *testing.T) {
	f, rest := parse(t, "--delay", "0", "--", "app", "--delay", "5")

	cfg, err := Load(f, rest, noEnv)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Delay != 0 {
		t.Errorf("Delay = %v, want 0", cfg.Delay)
	}
	if cfg.Executable != "app" || strings.Join(cfg.Args, " ") != "--delay 5" {
		t.Errorf("child = %q %v", cfg.Executable, cfg.Args)
	}
}

func TestBindFlags_NegativeDelayRejected(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	BindFlags(fs)

	if err := fs.Parse([]string{"-t", "-5", "app"}); err == nil {
		t.Error("negative delay should not parse")
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "watchdog.yaml", `
executable: from-file
args: ["a"]
delay_ms: 500
log_level: warn
log_format: json
metrics_addr: 127.0.0.1:1
`)
	env := envMap(map[string]string{
		EnvLogLevel:    "debug",
		EnvLogFormat:   "text",
		EnvMetricsAddr: "127.0.0.1:2",
	})

	tests := []struct {
		name       string
		args       []string
		wantExe    string
		wantDelay  time.Duration
		wantLevel  string
		wantFormat string
		wantAddr   string
	}{
		{
			name:       "file beats env",
			args:       []string{"-c", path},
			wantExe:    "from-file",
			wantDelay:  500 * time.Millisecond,
			wantLevel:  "warn",
			wantFormat: "json",
			wantAddr:   "127.0.0.1:1",
		},
		{
			name:       "explicit flags beat file",
			args:       []string{"-c", path, "-t", "10", "--log-level", "error", "--metrics", "127.0.0.1:3"},
			wantExe:    "from-file",
			wantDelay:  10 * time.Millisecond,
			wantLevel:  "error",
			wantFormat: "json",
			wantAddr:   "127.0.0.1:3",
		},
		{
			name:       "positional beats file",
			args:       []string{"-c", path, "from-cli"},
			wantExe:    "from-cli",
			wantDelay:  500 * time.Millisecond,
			wantLevel:  "warn",
			wantFormat: "json",
			wantAddr:   "127.0.0.1:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, rest := parse(t, tt.args...)
			cfg, err := Load(f, rest, env)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if cfg.Executable != tt.wantExe {
				t.Errorf("Executable = %q, want %q", cfg.Executable, tt.wantExe)
			}
			if cfg.Delay != tt.wantDelay {
				t.Errorf("Delay = %v, want %v", cfg.Delay, tt.wantDelay)
			}
			if cfg.LogLevel != tt.wantLevel {
				t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, tt.wantLevel)
			}
			if cfg.LogFormat != tt.wantFormat {
				t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, tt.wantFormat)
			}
			if cfg.MetricsAddr != tt.wantAddr {
				t.Errorf("MetricsAddr = %q, want %q", cfg.MetricsAddr, tt.wantAddr)
			}
		})
	}
}

func TestLoad_PositionalReplacesFileArgs(t *testing.T) {
	path := writeFile(t, "watchdog.yaml", "executable: a\nargs: [\"x\", \"y\"]\n")

	f, rest := parse(t, "-c", path, "b")
	cfg, err := Load(f, rest, noEnv)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Executable != "b" || len(cfg.Args) != 0 {
		t.Errorf("child = %q %v, want b with no args", cfg.Executable, cfg.Args)
	}
}

func TestLoad_BadConfigFile(t *testing.T) {
	f, rest := parse(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "app")
	if _, err := Load(f, rest, noEnv); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestPrintUsage(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)

	var buf bytes.Buffer
	PrintUsage(&buf, fs)
	out := buf.String()

	for _, want := range []string{
		"Redirection:",
		"-i, --stdin string",
		"-t, --delay ms",
		"(default 1000)",
		"--tui",
		"Diagnostics:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("usage missing %q:\n%s", want, out)
		}
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Executable = "/bin/true"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero delay", func(c *Config) { c.Delay = 0 }, ""},
		{"missing executable", func(c *Config) { c.Executable = "" }, "executable"},
		{"negative delay", func(c *Config) { c.Delay = -time.Millisecond }, "delay"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad metrics addr", func(c *Config) { c.MetricsAddr = "17092" }, "metrics_addr"},
		{"metrics addr port only", func(c *Config) { c.MetricsAddr = ":17092" }, ""},
		{"tui without redirects", func(c *Config) { c.TUIEnabled = true }, "tui"},
		{"tui with redirects", func(c *Config) {
			c.TUIEnabled = true
			c.Stdout = "out"
			c.Stderr = "err"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)

			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}

			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFormat = "xml"
	cfg.Delay = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"executable", "delay", "log_format"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q missing field %q", err, field)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "delay", Message: "must not be negative"}
	if got := err.Error(); got != "delay: must not be negative" {
		t.Errorf("Error() = %q", got)
	}
}
