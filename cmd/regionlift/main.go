package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/regionlift/cfgfile"
	"github.com/wippyai/regionlift/config"
	"github.com/wippyai/regionlift/region"
)

// Version information (set via ldflags during build)
var (
	Version = "dev"
	Commit  = "unknown"
)

// app carries state shared by all subcommands once the root has loaded the
// configuration.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "regionlift",
		Short: "regionlift - structure control flow graphs into region trees",
		Long: `regionlift reduces the control flow graph of a function into a tree of
structured regions (sequences, switches, loops, exception handling) and can
lower the result to WebAssembly to check that it behaves like the input.

Graphs are read from .cfg text files or .yaml files.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to config file (default: regionlift.{yaml,yml,toml,json} if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(liftCmd(a))
	root.AddCommand(emitCmd(a))
	root.AddCommand(runCmd(a))
	root.AddCommand(browseCmd(a))
	root.AddCommand(versionCmd())
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	region.SetLogger(logger.Named("region"))
	return nil
}

// loadFunction reads path and selects one function from it.
func loadFunction(path, name string) (cfgfile.Function, error) {
	fns, err := cfgfile.Load(path)
	if err != nil {
		return cfgfile.Function{}, err
	}
	return cfgfile.Find(fns, name)
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			out := cmd.OutOrStdout()
			if !verbose {
				fmt.Fprintf(out, "regionlift version %s\n", Version)
				return
			}
			goVersion := "unknown"
			if info, ok := debug.ReadBuildInfo(); ok {
				goVersion = info.GoVersion
			}
			fmt.Fprintf(out, "regionlift version %s (commit: %s, %s)\n", Version, Commit, goVersion)
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}
