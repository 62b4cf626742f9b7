package commands

import (
	stderrors "errors"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/cli/config"
	"github.com/wpkernel/wpkgen/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// errReported is returned once a command has already rendered its failure
var errReported = stderrors.New("command failed")

// flagKeys maps command flags onto config keys. Only flags of the running
// command are bound, so two commands may share a key.
var flagKeys = map[string]string{
	"out":                     "output.dir",
	"format":                  "output.format",
	"metadata":                "output.metadata",
	"workers":                 "build.workers",
	"include-base-controller": "build.include_base_controller",
	"cache":                   "cache.backend",
	"addr":                    "server.addr",
	"secret":                  "server.jwt_secret",
	"ttl":                     "server.token_ttl",
	"rate-limit":              "server.rate_limit.requests",
	"pprof":                   "server.pprof",
}

// app carries state shared by every command once flags are parsed
type app struct {
	configFile string
	verbose    bool
	noColor    bool

	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

// load reads the configuration, binding the running command's flags over it
func (a *app) load(cmd *cobra.Command) error {
	a.v = config.New(a.configFile)

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = a.v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		ui.ConfigError(cmd.ErrOrStderr(), err, a.noColor)
		return errReported
	}
	a.cfg = cfg
	a.logger = newLogger(a.verbose, cfg)
	return nil
}

// newLogger builds the command logger. Verbose runs get the development
// logger; otherwise the production logger at the configured level.
func newLogger(verbose bool, cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		zc := zap.NewProductionConfig()
		if level, lerr := cfg.LogLevel(); lerr == nil {
			zc.Level = zap.NewAtomicLevelAt(level)
		}
		logger, err = zc.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "wpkgen",
		Short: "Compile resource plans into WordPress REST controllers",
		Long: color.CyanString(`wpkgen - WordPress REST controller compiler

wpkgen reads a resource plan and emits PHP REST controllers as a
php-parser compatible AST, with metadata describing routes, cache
dependencies and capabilities.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.noColor {
				color.NoColor = true
			}
			if cmd.Annotations["config"] == "skip" {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file (default: ./wpkgen.yaml or ~/.wpkgen/wpkgen.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable development logging")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newGenerateCommand(a))
	rootCmd.AddCommand(newInspectCommand(a))
	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newHistoryCommand(a))
	rootCmd.AddCommand(newCacheCommand(a))
	rootCmd.AddCommand(newTokenCommand(a))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Long:        "Display the wpkgen version, Git commit, build date, and Go version",
		Annotations: map[string]string{"config": "skip"},
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			kv := ui.NewKeyValues(cmd.OutOrStdout(), color.NoColor)
			kv.Add("wpkgen version", Version)
			kv.Add("Git commit", GitCommit)
			kv.Add("Build date", BuildDate)
			kv.Add("Go version", goVer)
			kv.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !stderrors.Is(err, errReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
