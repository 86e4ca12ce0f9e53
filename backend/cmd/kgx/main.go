package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kg-extractor/backend/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "kgx",
		Short: "kgx - extract RDF knowledge graphs from text",
		Long: `kgx turns free text into an RDF knowledge graph.

The text is rewritten to resolve coreferences, a language model emits
(head, relation, tail) triplets, entities are linked to DBpedia through
Wikipedia, and the graph is enriched with DBpedia predicates and types.

Available commands:
  extract - Run the full pipeline on a text
  parse   - Parse a tagged triplet stream without calling any service
  eval    - Score triplets against a reference set

Examples:
  kgx extract "Bill Gates founded Microsoft." --format ntriples
  kgx extract -f article.txt --render --name article
  echo "<triplet> Bill <subj> doctor <obj> occupation" | kgx parse
  kgx eval --reference ref.yaml --predicted out.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env := os.Getenv("ENV")
			if env == "" {
				env = "development"
			}
			if err := logger.Init(env); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if logLevel == "" {
				logLevel = os.Getenv("LOG_LEVEL")
			}
			return logger.SetLevel(logLevel)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from ENV)")

	root.AddCommand(newExtractCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newEvalCmd())
	return root
}

func main() {
	err := newRootCmd().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// readInput returns the contents of file ("-" for stdin), else the joined args,
// else stdin.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		return readAll(cmd.InOrStdin())
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	return readAll(cmd.InOrStdin())
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// writeValue prints v as indented JSON or YAML.
func writeValue(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}
