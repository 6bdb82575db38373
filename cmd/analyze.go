package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/bouyassine11/AnalytIQ/internal/insight"
	"github.com/bouyassine11/AnalytIQ/internal/pipeline"
	"github.com/bouyassine11/AnalytIQ/internal/utils"
)

var (
	anaOutputPath string
	anaJSON       bool
	anaProvider   string
	anaModel      string
	anaNoAI       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Clean and analyze a CSV file and print the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c := currentConfig()
		var gen insight.Generator
		if !anaNoAI {
			g, err := newGenerator(c, runtimeOptions{ProviderFlag: anaProvider, ModelFlag: anaModel})
			if err != nil {
				return err
			}
			gen = g
		}
		res, err := newPipeline(c, gen).Run(ctx, args[0])
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), res, anaJSON, anaOutputPath)
	},
}

// writeResult prints res as Markdown or JSON, or writes it to path.
func writeResult(w io.Writer, res *pipeline.Result, asJSON bool, path string) error {
	var out []byte
	if asJSON {
		b, err := utils.PrettyJSON(res)
		if err != nil {
			return err
		}
		out = b
	} else {
		out = []byte(res.Markdown())
	}
	if path != "" {
		if err := utils.SafeWriteFile(path, out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(w, "✓ Wrote analysis to %s\n", path)
		return nil
	}
	_, err := fmt.Fprintln(w, string(out))
	return err
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "emit the full result record as JSON")
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "insight provider: huggingface | openrouter | ollama | none (overrides config)")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "insight model (overrides config)")
	analyzeCmd.Flags().BoolVar(&anaNoAI, "no-ai", false, "skip the generator and use the built-in summary")
}
