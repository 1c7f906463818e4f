// Package main provides the CLI entrypoint for ieltsmock.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/ieltsmock/internal/api"
	"github.com/verte-zerg/ieltsmock/internal/auth"
	"github.com/verte-zerg/ieltsmock/internal/config"
	"github.com/verte-zerg/ieltsmock/internal/logging"
	"github.com/verte-zerg/ieltsmock/internal/recording"
	"github.com/verte-zerg/ieltsmock/internal/store"
)

const (
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 10
	envFile            = ".env"
)

var (
	rootAPI     string
	rootTimeout string
	rootDebug   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ieltsmock",
		Short:         "IELTS mock test client for the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&rootAPI, "api", "", "backend base URL (default "+api.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&rootTimeout, "timeout", "", "request timeout, e.g. 10s")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "write debug messages to the log file")

	rootCmd.AddCommand(newTakeCmd())
	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newTestsCmd())
	rootCmd.AddCommand(newPackCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// app holds what every online command needs.
type app struct {
	cfg     config.FileConfig
	logger  *slog.Logger
	store   *store.Store
	session *auth.Session
	client  *api.Client
	closers []io.Closer
}

func loadFileConfig() (config.FileConfig, error) {
	if err := config.LoadEnv(envFile); err != nil {
		return config.FileConfig{}, err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(&fileCfg)
	return fileCfg, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return nil, err
	}
	applyStringConfig(cmd, "api", &rootAPI, fileCfg.API.BaseURL)
	applyStringConfig(cmd, "timeout", &rootTimeout, fileCfg.API.Timeout)
	fileCfg.API.BaseURL = &rootAPI
	fileCfg.API.Timeout = &rootTimeout

	timeout, err := fileCfg.API.RequestTimeout(api.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.Open(config.DefaultLogPath(), rootDebug)
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		logger = logging.Discard()
	}
	a := &app{cfg: fileCfg, logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	a.store = st
	a.closers = append([]io.Closer{st}, a.closers...)

	a.session = auth.NewSession(st)
	if err := a.session.Restore(cmd.Context()); err != nil {
		logger.Warn("failed to restore session", "error", err)
	}
	if token := config.EnvTokenValue(); token != "" {
		a.session.UseToken(token)
	}
	a.client = api.New(rootAPI, timeout, a.session, logger)
	logger.Debug("client ready", "base_url", a.client.BaseURL(), "timeout", timeout)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logErrf("failed to close: %v\n", err)
		}
	}
}

func (a *app) profiles() recording.Profiles {
	return a.cfg.Speaking.Profiles(recording.DefaultProfiles())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	profiles := recording.DefaultProfiles()
	return fmt.Sprintf(`# ieltsmock configuration
# Uncomment a value to enable it. CLI flags and %s override config values.

[api]
# base-url = %q
# timeout = %q

[speaking]
# part1-max = %d          # Seconds per Part 1 answer
# part2-prep = %d         # Preparation seconds before the Part 2 long turn
# part2-max = %d         # Seconds for the Part 2 long turn
# part3-max = %d          # Seconds per Part 3 answer

[recorder]
# command = ["arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", "{file}"]

[practice]
# section = "Reading"     # Only pick tests of this section
# focus-weak = false      # Bias practice toward weak sections
# weak-factor = %.1f      # Extra weight of a weak-section test
# weak-window = %d        # Recent attempts per section used to find weak sections
`,
		config.EnvAPIURL,
		api.DefaultBaseURL,
		api.DefaultTimeout.String(),
		profiles.Part1.MaxSeconds,
		profiles.Part2.PrepSeconds,
		profiles.Part2.MaxSeconds,
		profiles.Part3.MaxSeconds,
		defaultWeakFactor,
		defaultWeakWindow,
	)
}

func parseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
