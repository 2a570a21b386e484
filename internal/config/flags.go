package config

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"
)

// Flags holds the values bound to a command's flag set. Only flags the user
// explicitly set are applied, so a config file value is not clobbered by a
// flag default.
type Flags struct {
	fs *pflag.FlagSet

	stdin           string
	stdout          string
	stderr          string
	delayMS         uint64
	configFile      string
	logFormat       string
	logLevel        string
	verbose         bool
	metricsAddr     string
	metricsTextfile string
	tui             bool
	summary         bool
	printCmd        bool
	skipPreflight   bool
}

// BindFlags registers the watchdog flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	def := DefaultConfig()
	f := &Flags{fs: fs}

	// Redirection
	fs.StringVarP(&f.stdin, "stdin", "i", "", "Redirect the child's stdin from this file")
	fs.StringVarP(&f.stdout, "stdout", "o", "", "Redirect the child's stdout to this file (created or truncated)")
	fs.StringVarP(&f.stderr, "stderr", "e", "", "Redirect the child's stderr to this file (created or truncated)")

	// Restart policy
	fs.Uint64VarP(&f.delayMS, "delay", "t", uint64(def.Delay/time.Millisecond), "Delay before restarting, in milliseconds")

	// Configuration
	fs.StringVarP(&f.configFile, "config", "c", "", "YAML config file (flags override it)")

	// Observability
	fs.StringVar(&f.logFormat, "log-format", def.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel, `Log level: "debug", "info", "warn" or "error" (env `+EnvLogLevel+`)`)
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Verbose logging (debug level with source locations)")
	fs.StringVar(&f.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:17092 (env "+EnvMetricsAddr+")")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "Write final metrics in Prometheus text format to this file on exit")

	// Dashboard
	fs.BoolVar(&f.tui, "tui", false, "Live terminal dashboard (requires --stdout and --stderr)")
	fs.BoolVar(&f.summary, "summary", false, "Print an exit summary to stderr")

	// Diagnostics
	fs.BoolVar(&f.printCmd, "print-cmd", false, "Print the resolved command line and exit")
	fs.BoolVar(&f.skipPreflight, "skip-preflight", false, "Skip preflight checks")

	return f
}

// ConfigFile returns the --config value.
func (f *Flags) ConfigFile() string {
	return f.configFile
}

// Apply copies every explicitly set flag into cfg.
func (f *Flags) Apply(cfg *Config) {
	changed := f.fs.Changed

	if changed("stdin") {
		cfg.Stdin = f.stdin
	}
	if changed("stdout") {
		cfg.Stdout = f.stdout
	}
	if changed("stderr") {
		cfg.Stderr = f.stderr
	}
	if changed("delay") {
		cfg.Delay = time.Duration(f.delayMS) * time.Millisecond
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if changed("metrics") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if changed("metrics-textfile") {
		cfg.MetricsTextfile = f.metricsTextfile
	}
	if changed("tui") {
		cfg.TUIEnabled = f.tui
	}
	if changed("summary") {
		cfg.Summary = f.summary
	}
	if changed("print-cmd") {
		cfg.PrintCmd = f.printCmd
	}
	if changed("skip-preflight") {
		cfg.SkipPreflight = f.skipPreflight
	}
}

// Load builds the effective configuration: defaults, then environment, then
// the config file, then explicitly set flags, then the positional
// executable and arguments.
func Load(f *Flags, positional []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()
	ApplyEnv(cfg, lookup)

	if path := f.ConfigFile(); path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	f.Apply(cfg)

	if len(positional) > 0 {
		cfg.Executable = positional[0]
		cfg.Args = append([]string(nil), positional[1:]...)
	}

	return cfg, nil
}

// flagCategories groups flags for the help text.
var flagCategories = []struct {
	title string
	names []string
}{
	{"Redirection", []string{"stdin", "stdout", "stderr"}},
	{"Restart Policy", []string{"delay"}},
	{"Configuration", []string{"config"}},
	{"Observability", []string{"log-format", "log-level", "verbose", "metrics", "metrics-textfile"}},
	{"Dashboard", []string{"tui", "summary"}},
	{"Diagnostics", []string{"print-cmd", "skip-preflight"}},
}

// PrintUsage writes the grouped flag help for fs to w.
func PrintUsage(w io.Writer, fs *pflag.FlagSet) {
	for _, cat := range flagCategories {
		fmt.Fprintf(w, "\n%s:\n", cat.title)
		printFlagCategory(w, fs, cat.names)
	}
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(w io.Writer, fs *pflag.FlagSet, names []string) {
	for _, name := range names {
		fl := fs.Lookup(name)
		if fl == nil {
			continue
		}

		if fl.Shorthand != "" {
			fmt.Fprintf(w, "  -%s, --%s", fl.Shorthand, fl.Name)
		} else {
			fmt.Fprintf(w, "      --%s", fl.Name)
		}
		if t := flagType(fl); t != "" {
			fmt.Fprintf(w, " %s", t)
		}
		fmt.Fprintf(w, "\n    \t%s", fl.Usage)
		if fl.DefValue != "" && fl.DefValue != "false" && fl.DefValue != "0" {
			fmt.Fprintf(w, " (default %s)", fl.DefValue)
		}
		fmt.Fprintln(w)
	}
}

// flagType returns a type hint for the flag value.
func flagType(fl *pflag.Flag) string {
	switch fl.Value.Type() {
	case "bool":
		return ""
	case "uint64":
		return "ms"
	default:
		return fl.Value.Type()
	}
}
