package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
	"github.com/wippyai/regionlift/wasmemit"
)

func emitCmd(a *app) *cobra.Command {
	var funcName, outputPath string

	cmd := &cobra.Command{
		Use:   "emit FILE",
		Short: "Lift a function and write it as a WebAssembly module",
		Long: `Lift a function and lower the region tree to a WebAssembly module.

The module imports env.visit(i32) and env.choose(i32, i32) -> i32 and exports
run(). Each executed block calls visit with its index.

Examples:
  regionlift emit loop.cfg -o loop.wasm
  regionlift emit funcs.yaml -f main -o main.wasm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := loadFunction(args[0], funcName)
			if err != nil {
				return err
			}
			tree, err := region.Lift(fn.Graph, fn.Entrypoint(), a.cfg.RegionConfig(a.logger))
			if err != nil {
				return err
			}
			bin, err := wasmemit.Emit(tree)
			if err != nil {
				return err
			}
			a.logger.Debug("emitted module",
				zap.String("func", fn.Name),
				zap.Int("bytes", len(bin)),
				zap.Bool("structured", tree.Structured()))

			if outputPath == "" {
				_, err = cmd.OutOrStdout().Write(bin)
				return err
			}
			if err := os.WriteFile(outputPath, bin, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&funcName, "func", "f", "", "Function name (optional for single-function files)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func runCmd(a *app) *cobra.Command {
	var (
		funcName string
		seed     int64
		fuel     int
	)

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Lift, emit and execute a function, checking it against the graph",
		Long: `Lift a function, emit it as WebAssembly, execute it under wazero and compare
the visited blocks with a direct walk of the input graph. Branch choices come
from a pseudo-random source seeded with --seed, so both walks see the same
choices.

Examples:
  regionlift run loop.cfg --seed 3
  regionlift run funcs.yaml -f main --fuel 500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("seed") {
				a.cfg.Run.Seed = seed
			}
			if cmd.Flags().Changed("fuel") {
				a.cfg.Run.Fuel = fuel
			}

			fn, err := loadFunction(args[0], funcName)
			if err != nil {
				return err
			}
			tree, err := region.Lift(fn.Graph, fn.Entrypoint(), a.cfg.RegionConfig(a.logger))
			if err != nil {
				return err
			}
			bin, err := wasmemit.Emit(tree)
			if err != nil {
				return err
			}

			runner, err := wasmemit.NewRunner(cmd.Context(), wasmemit.Config{Logger: a.logger})
			if err != nil {
				return err
			}
			defer runner.Close(cmd.Context())

			got, runErr := runner.Run(cmd.Context(), bin, seededChooser(a.cfg.Run.Seed), a.cfg.Run.Fuel)
			want, simErr := wasmemit.Simulate(fn.Graph, fn.Entrypoint(), seededChooser(a.cfg.Run.Seed), a.cfg.Run.Fuel)

			exhausted := errors.FuelExhausted(a.cfg.Run.Fuel)
			if runErr != nil && !stderrors.Is(runErr, exhausted) {
				return runErr
			}
			if simErr != nil && !stderrors.Is(simErr, exhausted) {
				return simErr
			}

			out := cmd.OutOrStdout()
			writeTrace(out, fn.Graph, got)
			if runErr != nil {
				fmt.Fprintf(out, "fuel exhausted after %d visits\n", len(got))
			}
			if (runErr == nil) != (simErr == nil) || !slices.Equal(got, want) {
				fmt.Fprint(out, "simulation: ")
				writeTrace(out, fn.Graph, want)
				return errors.New(errors.PhaseRuntime, errors.KindInternal).
					Region(fn.Name).
					Detail("emitted module diverges from the graph (seed %d)", a.cfg.Run.Seed).
					Build()
			}
			fmt.Fprintf(out, "ok: %d visits match the graph\n", len(got))
			return nil
		},
	}

	cmd.Flags().StringVarP(&funcName, "func", "f", "", "Function name (optional for single-function files)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for branch choices (overrides config)")
	cmd.Flags().IntVar(&fuel, "fuel", 0, "Maximum number of block visits (overrides config)")
	return cmd
}

func seededChooser(seed int64) wasmemit.Chooser {
	rng := rand.New(rand.NewSource(seed))
	return func(_ region.ID, n int) int { return rng.Intn(n) }
}

func writeTrace(w io.Writer, g *region.Graph, trace []region.ID) {
	labels := make([]string, len(trace))
	for i, id := range trace {
		labels[i] = g.Label(id)
	}
	fmt.Fprintf(w, "trace: %s\n", strings.Join(labels, " "))
}
