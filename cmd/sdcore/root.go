package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/config"
	"github.com/spacedriveapp/sdcore/internal/model"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDataDir    string
	flagLibraryID  string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// skipConfigAnnotation marks commands that handle config loading themselves
// (currently none do, but kept for parity with the teacher's command tree
// so a future auth-less or offline command can opt out cleanly).
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles resolved config, the active device identity, and a
// logger — built once in PersistentPreRunE and threaded through every
// command via the cobra context, so RunE handlers never re-resolve config.
type CLIContext struct {
	Cfg    *config.Resolved
	Device *model.Device
	Logger *slog.Logger
	Quiet  bool
	JSON   bool
}

type cliContextKey struct{}

// cliContextFrom extracts the CLIContext from the command's context.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message — a programmer error, since every command route passes through
// PersistentPreRunE first.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — PersistentPreRunE did not run")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sdcore",
		Short:   "Cross-device file indexing and sync engine",
		Long:    "A thin demonstration CLI over the engine's action dispatcher and query API.",
		Version: version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}

			return loadCLIContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory override")
	cmd.PersistentFlags().StringVar(&flagLibraryID, "library", "", "library UUID to operate on (required by most commands)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newLibraryCmd())
	cmd.AddCommand(newLocationCmd())
	cmd.AddCommand(newFileCmd())
	cmd.AddCommand(newDuplicateCmd())
	cmd.AddCommand(newVolumeCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReloadCmd())

	return cmd
}

// loadCLIContext resolves configuration, loads/creates this machine's device
// identity, and stores the result in the command's context for subcommands.
func loadCLIContext(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	cli := config.CLIOverrides{ConfigPath: flagConfigPath, DataDir: flagDataDir}
	env := config.ReadEnvOverrides(logger)

	resolved, err := config.Resolve(env, cli, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := config.ValidateResolved(resolved); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dev, err := loadOrCreateDevice(resolved.DataDir)
	if err != nil {
		return fmt.Errorf("loading device identity: %w", err)
	}

	if err := touchDevice(resolved.DataDir, dev); err != nil {
		logger.Warn("failed to update device last-seen time", "error", err)
	}

	finalLogger := buildLogger(resolved)

	cc := &CLIContext{Cfg: resolved, Device: dev, Logger: finalLogger, Quiet: flagQuiet, JSON: flagJSON}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Pass nil for pre-config bootstrap. Config-file log level
// provides the baseline; --verbose/--debug/--quiet (mutually exclusive)
// override it, since CLI flags always win.
func buildLogger(cfg *config.Resolved) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// requireLibraryFlag returns the --library flag value or an error describing
// which commands need it, mirroring the teacher's --drive handling.
func requireLibraryFlag() (string, error) {
	if flagLibraryID == "" {
		return "", fmt.Errorf("--library is required (pass the library UUID from `sdcore library list`)")
	}

	return flagLibraryID, nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
