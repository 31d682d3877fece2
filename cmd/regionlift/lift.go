package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/regionlift/batch"
	"github.com/wippyai/regionlift/cfgfile"
	"github.com/wippyai/regionlift/treeenc"
)

func liftCmd(a *app) *cobra.Command {
	var (
		format     string
		outputPath string
		aliases    bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "lift FILE...",
		Short: "Lift every function in the given graph files",
		Long: `Lift every function in the given graph files and print the region trees.

Examples:
  regionlift lift testdata/try.cfg
  regionlift lift --format yaml funcs.yaml
  regionlift lift --format cbor -o trees.cbor a.cfg b.cfg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("format") {
				a.cfg.Output.Format = format
			}
			if cmd.Flags().Changed("aliases") {
				a.cfg.Output.Aliases = aliases
			}
			f, err := treeenc.ParseFormat(a.cfg.Output.Format)
			if err != nil {
				return err
			}

			jobs, err := collectJobs(args)
			if err != nil {
				return err
			}

			bar := newProgress(cmd.ErrOrStderr(), !noProgress && isInteractive(), len(jobs))
			exec := batch.NewExecutor(
				batch.WithWorkers(a.cfg.Batch.Workers),
				batch.WithLogger(a.logger),
				batch.OnDone(func(batch.Result) { bar.Increment() }),
			)
			results, err := exec.Run(cmd.Context(), jobs, a.cfg.RegionConfig(a.logger))
			bar.Finish()
			if err != nil {
				return err
			}

			opts := treeenc.Options{Aliases: a.cfg.Output.Aliases}
			docs := make([]treeenc.Document, 0, len(results))
			for _, r := range results {
				if r.Err != nil {
					continue
				}
				if !r.Tree.Structured() {
					a.logger.Info("function left unstructured", zap.String("func", r.Name))
				}
				docs = append(docs, treeenc.NewDocument(r.Name, r.Tree, opts))
			}

			var buf bytes.Buffer
			if err := treeenc.Encode(&buf, docs, f); err != nil {
				return err
			}
			if outputPath != "" {
				if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outputPath, err)
				}
			} else if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
				return err
			}

			return batch.Errors(results)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Output format: text, yaml, cbor (overrides config)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().BoolVar(&aliases, "aliases", false, "Keep alias regions in the output")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

// collectJobs loads every file and names functions file:function when more
// than one file is given.
func collectJobs(paths []string) ([]batch.Job, error) {
	var jobs []batch.Job
	for _, path := range paths {
		fns, err := cfgfile.Load(path)
		if err != nil {
			return nil, err
		}
		for _, fn := range fns {
			name := fn.Name
			if len(paths) > 1 {
				name = path + ":" + fn.Name
			}
			jobs = append(jobs, batch.Job{Name: name, Graph: fn.Graph, Entry: fn.Entrypoint()})
		}
	}
	return jobs, nil
}
