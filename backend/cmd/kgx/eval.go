package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kg-extractor/backend/internal/app"
	"kg-extractor/backend/internal/eval"
	"kg-extractor/backend/internal/pipeline"
	"kg-extractor/backend/internal/triplet"
	"kg-extractor/backend/pkg/config"
)

func newEvalCmd() *cobra.Command {
	var (
		referenceFile string
		predictedFile string
		textFile      string
		comparator    string
		format        string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score triplets against a reference set",
		Long: `Compute precision, recall and F1 of predicted triplets against a
reference set. Both files are YAML lists of {head, type, tail} mappings or
[head, relation, tail] sequences.

Predicted triplets come from --predicted, or are extracted from --text.
The lexical comparator needs no service; the embedding comparator calls
the configured embedding model and matches above cosine 0.85.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if referenceFile == "" {
				return fmt.Errorf("--reference is required")
			}
			if predictedFile == "" && textFile == "" {
				return fmt.Errorf("one of --predicted or --text is required")
			}

			reference, err := loadTriplets(referenceFile)
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

			var predicted []triplet.Triplet
			if predictedFile != "" {
				if predicted, err = loadTriplets(predictedFile); err != nil {
					return err
				}
			} else {
				text, err := readInput(cmd, nil, textFile)
				if err != nil {
					return err
				}
				res, err := a.Pipeline.Run(ctx, text, pipeline.Options{})
				if err != nil {
					return err
				}
				predicted = res.Triplets
			}

			evaluator, err := a.Evaluator(comparator)
			if err != nil {
				return err
			}
			metrics, err := evaluator.Evaluate(ctx, predicted, reference)
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), format, metrics)
		},
	}

	cmd.Flags().StringVarP(&referenceFile, "reference", "r", "", "YAML file of reference triplets")
	cmd.Flags().StringVarP(&predictedFile, "predicted", "p", "", "YAML file of predicted triplets")
	cmd.Flags().StringVarP(&textFile, "text", "t", "", "Extract predicted triplets from this text file (- for stdin)")
	cmd.Flags().StringVarP(&comparator, "comparator", "c", app.CompareLexical, "Comparator: lexical or embedding")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: json or yaml")
	return cmd
}

func loadTriplets(path string) ([]triplet.Triplet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	triplets, err := eval.LoadReference(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return triplets, nil
}
