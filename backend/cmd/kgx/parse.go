package main

import (
	"github.com/spf13/cobra"

	"kg-extractor/backend/internal/triplet"
)

func newParseCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "parse [stream]",
		Short: "Parse a tagged triplet stream",
		Long: `Parse a <triplet>/<subj>/<obj> tagged stream into triplets.

The stream is read from the arguments, from --file, or from stdin.
No network service is contacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), format, triplet.Parse(stream))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the stream from a file (- for stdin)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")
	return cmd
}
