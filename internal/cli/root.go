package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bondval/internal/config"
	apperrors "bondval/internal/errors"
	"bondval/internal/logging"
	"bondval/internal/metrics"
	"bondval/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-19"
)

// App holds the application dependencies. They are set up by the root
// command once flags are parsed.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.DataStore
	Metrics *metrics.Recorder
}

// Close writes the metrics textfile and closes the history store.
func (a *App) Close() error {
	var errs []error
	if a.Metrics != nil && a.Config != nil {
		if err := a.Metrics.WriteTextfile(a.Config.Metrics.Textfile); err != nil {
			errs = append(errs, apperrors.Wrap(err, "write metrics textfile"))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
		a.Store = nil
	}
	return errors.Join(errs...)
}

// observe records the latency and outcome of an operation.
func (a *App) observe(op, kind string, start time.Time, err error) {
	a.Metrics.RecordLatency(op, time.Since(start).Seconds())
	if err == nil {
		return
	}
	a.Metrics.RecordValuation(kind, "error")
	a.Metrics.RecordError(errorType(err))
}

// errorType maps an error to a short metrics label.
func errorType(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidTermSheet):
		return "invalid_term_sheet"
	case apperrors.Is(err, apperrors.ErrUnsupportedKind):
		return "unsupported_kind"
	case apperrors.Is(err, apperrors.ErrDegeneratePrice):
		return "degenerate_price"
	case apperrors.Is(err, apperrors.ErrInvalidCurve):
		return "invalid_curve"
	case apperrors.Is(err, apperrors.ErrDatabaseError):
		return "database"
	default:
		return "other"
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() (*cobra.Command, *App) {
	app := &App{
		Logger:  zerolog.Nop(),
		Metrics: metrics.New(),
	}

	rootCmd := &cobra.Command{
		Use:   "bondval",
		Short: "Bond valuation - price, duration and convexity of simple bonds",
		Long: `bondval values zero-coupon, fixed-coupon and floating-coupon bonds from a
term sheet: cash-flow calendar, dirty and clean price, accrued interest,
Macaulay and modified duration, convexity and the price/yield curve.

Term-sheet flags default to the [defaults] section of config.toml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/bondval)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-history", false, "do not record valuations in the history store")

	addCoreCommands(rootCmd, app)
	addValuationCommands(rootCmd, app)
	addBatchCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)

	return rootCmd, app
}

func (a *App) setup(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	bootLevel := "info"
	if debug {
		bootLevel = "debug"
	}
	cfg, err := config.Load(dir, logging.NewLoggerWithConfig(logging.LogConfig{Level: bootLevel, Console: true}))
	if err != nil {
		return err
	}
	a.Config = cfg

	logCfg := logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    true,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}
	if debug {
		logCfg.Level = "debug"
	}
	a.Logger = logging.NewLoggerWithConfig(logCfg)
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.Logger))

	if cfg.File != "" {
		a.Logger.Debug().Str("file", cfg.File).Msg("Configuration loaded")
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if !cfg.Store.Enabled || noHistory || !usesStore(cmd) {
		return nil
	}

	dataStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		if isHistoryCmd(cmd) {
			return err
		}
		a.Logger.Warn().Err(err).Msg("Failed to open history store, valuations will not be recorded")
		return nil
	}
	a.Store = dataStore
	a.Logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
	return nil
}

// storeAnnotation marks commands that read or write valuation history.
const storeAnnotation = "bondval/store"

func usesStore(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[storeAnnotation]
	return ok
}

func isHistoryCmd(cmd *cobra.Command) bool {
	return cmd.Annotations[storeAnnotation] == "required"
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("bondval v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and check the application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": dir, "file": app.Config.File})
			}
			output.Println(dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	d := cfg.Defaults
	output.Heading("Term Sheet Defaults")
	output.Printf("  Kind:             %s\n", cfg.DefaultKind())
	output.Printf("  Face Value:       %s\n", FormatAmount(d.FaceValue))
	output.Printf("  Coupon Rate:      %s\n", FormatRate(d.CouponRate))
	output.Printf("  Yield Rate:       %s\n", FormatRate(d.YieldRate))
	output.Printf("  Spread:           %s\n", FormatBasisPoints(d.Spread))
	output.Printf("  Coupon Period:    %s\n", FormatDays(d.CouponPeriodDays))
	output.Printf("  Maturity:         %s\n", FormatDays(d.MaturityDays))
	output.Printf("  Days Per Year:    %d\n", d.DaysPerYear)
	output.Println()

	output.Heading("Curve")
	output.Printf("  Yield Range:      %s to %s\n", FormatRate(cfg.Curve.Low), FormatRate(cfg.Curve.High))
	output.Printf("  Samples:          %d\n", cfg.Curve.Samples)
	output.Printf("  Workers:          %d\n", cfg.Curve.Workers)
	output.Println()

	output.Heading("History")
	output.Printf("  Enabled:          %v\n", cfg.Store.Enabled)
	output.Printf("  Path:             %s\n", cfg.Store.Path)
	output.Println()

	output.Heading("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	output.Printf("  File:             %v\n", cfg.Logging.File)
	if cfg.Metrics.Textfile != "" {
		output.Printf("  Metrics Textfile: %s\n", cfg.Metrics.Textfile)
	}
	if cfg.File != "" {
		output.Println()
		output.Dim("Loaded from %s", cfg.File)
	}
}

// requireStore returns the history store or an error explaining why it is off.
func (a *App) requireStore() (store.DataStore, error) {
	if a.Store == nil {
		return nil, fmt.Errorf("valuation history is disabled (store.enabled = false or --no-history)")
	}
	return a.Store, nil
}
