package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kg-extractor/backend/internal/app"
	"kg-extractor/backend/internal/export"
	"kg-extractor/backend/internal/pipeline"
	"kg-extractor/backend/pkg/config"
	"kg-extractor/backend/pkg/logger"
)

func newExtractCmd() *cobra.Command {
	var (
		file      string
		format    string
		name      string
		skipCoref bool
		render    bool
		persist   bool
	)

	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract a knowledge graph from text",
		Long: `Run coreference resolution, triplet generation, entity linking and
enrichment on a text, then print the assembled graph.

The text is read from the arguments, from --file, or from stdin.
With --render the graph is also drawn with Graphviz and saved as
<GRAPH_OUTPUT_DIR>/<name>.png. With --persist it is merged into Neo4j
(requires NEO4J_ENABLED=true).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if persist && a.Repository == nil {
				return fmt.Errorf("--persist requires NEO4J_ENABLED=true")
			}

			res, err := a.Pipeline.Run(ctx, text, pipeline.Options{
				SkipCoref: skipCoref,
				Render:    render,
				GraphName: name,
				Persist:   persist,
			})
			if res == nil {
				return err
			}
			if err != nil {
				// The graph is still printed; the exit status reports the export failure
				logger.ForRun(res.RunID).Error("Export failed", zap.Error(err))
			}

			if werr := export.Write(cmd.OutOrStdout(), outFormat, res.Graph, a.Namespaces); werr != nil {
				return werr
			}
			if res.ImagePath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Graph image saved to %s\n", res.ImagePath)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the text from a file (- for stdin)")
	cmd.Flags().StringVar(&format, "format", "ntriples", "Output format: ntriples, json, yaml or dot")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Image name for --render (defaults to the run ID)")
	cmd.Flags().BoolVar(&skipCoref, "skip-coref", false, "Skip the coreference rewrite")
	cmd.Flags().BoolVar(&render, "render", false, "Render the graph to PNG with Graphviz")
	cmd.Flags().BoolVar(&persist, "persist", false, "Merge the graph into Neo4j")
	return cmd
}
