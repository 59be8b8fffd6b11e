package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/placeset/aliases"
)

var pointerModeFlag string
var mutabilityModeFlag string
var parallelFlag int
var funcFlag string
var mutationsFlag bool
var logFileFlag string
var verboseFlag bool

const rootLongDescription = `Placeset analyzes the functions of the given Go packages and reports,
per function, which places may alias and which mutations each
instruction performs. Calls are summarized from types alone, so a
function's report never depends on callee bodies.

Supports Go-style package patterns:
  - ./...          recursively scan current directory
  - ./pkg/...      recursively scan pkg directory
  - ./cmd ./pkg    scan multiple directories`

// rootCmd represents the base command.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "placeset [packages...]",
		Short: "Alias and mutation analysis for Go functions",
		Long:  rootLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogger(logFileFlag, verboseFlag)

			cfg, err := analysisConfig()
			if err != nil {
				return err
			}

			patterns := args
			if len(patterns) == 0 {
				patterns = []string{"./..."}
			}

			slog.Debug("starting analysis",
				"patterns", patterns,
				"pointer_mode", cfg.PointerMode.String(),
				"mutability_mode", cfg.MutabilityMode.String(),
			)

			return analyze(cmd.OutOrStdout(), analyzeArgs{
				Patterns:   patterns,
				FuncFilter: viper.GetString(funcConfigKey),
				Parallel:   viper.GetInt(parallelConfigKey),
				Mutations:  viper.GetBool(mutationsConfigKey),
				Config:     cfg,
			})
		},
	}
}

func analysisConfig() (aliases.Config, error) {
	pm, err := aliases.ParsePointerMode(viper.GetString(pointerModeConfigKey))
	if err != nil {
		return aliases.Config{}, err
	}
	mm, err := aliases.ParseMutabilityMode(viper.GetString(mutabilityModeConfigKey))
	if err != nil {
		return aliases.Config{}, err
	}
	return aliases.Config{PointerMode: pm, MutabilityMode: mm}, nil
}

func init() {
	configureRootFlags(rootCmd)
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&pointerModeFlag, pointerModeFlagName, viper.GetString(pointerModeConfigKey), "pointer analysis mode: precise or conservative")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(pointerModeFlagName), pointerModeConfigKey)

	cmd.PersistentFlags().StringVar(&mutabilityModeFlag, mutabilityModeFlagName, viper.GetString(mutabilityModeConfigKey), "reachability through immutable refs: distinguish-mut or ignore-mut")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(mutabilityModeFlagName), mutabilityModeConfigKey)

	cmd.PersistentFlags().IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of functions analyzed in parallel")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.PersistentFlags().StringVarP(&funcFlag, funcFlagName, "f", viper.GetString(funcConfigKey), "only analyze functions whose name matches this regex")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(funcFlagName), funcConfigKey)

	cmd.PersistentFlags().BoolVarP(&mutationsFlag, mutationsFlagName, "m", viper.GetBool(mutationsConfigKey), "print the per-instruction mutation report for each function")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(mutationsFlagName), mutationsConfigKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, "", "log file path (default "+defaultLogFilename+")")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute runs the root command. Called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
