package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bouyassine11/AnalytIQ/internal/insight"
	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/store"
	"github.com/bouyassine11/AnalytIQ/internal/utils"
)

var (
	abOutDir  string
	abJSON    bool
	abWorkers int
	abUser    string
	abPersist bool
	abQuiet   bool
	abNoAI    bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV files as background jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c := currentConfig()
		var st jobs.Store = store.NewMemory()
		if abPersist {
			s, closeStore, err := openStore(ctx, c)
			if err != nil {
				return err
			}
			defer closeStore()
			st = s
		}
		var gen insight.Generator
		if !abNoAI {
			g, err := newGenerator(c, runtimeOptions{})
			if err != nil {
				return err
			}
			gen = g
		}
		svc := newService(c, st, gen, abWorkers)
		defer svc.Close()

		ids := make([]string, len(files))
		for i, path := range files {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			j, err := svc.Submit(ctx, abUser, filepath.Base(path), abs)
			if err != nil {
				return err
			}
			ids[i] = j.ID
		}

		out := cmd.OutOrStdout()
		used := map[string]int{}
		failed := 0
		for i, id := range ids {
			if err := svc.Wait(ctx, id); err != nil {
				return err
			}
			j, err := svc.Get(ctx, id, abUser)
			if err != nil {
				return err
			}
			if j.Status != jobs.StatusCompleted {
				failed++
				fmt.Fprintf(out, "[%d/%d] ✗ %s: %s\n", i+1, len(ids), j.Filename, j.Error)
				continue
			}
			line := fmt.Sprintf("[%d/%d] ✓ %s (%s)", i+1, len(ids), j.Filename, j.ID)
			if abOutDir != "" {
				path, err := writeBatchReport(j, used)
				if err != nil {
					return err
				}
				line += " -> " + path
			}
			if !abQuiet {
				fmt.Fprintln(out, line)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d datasets failed", failed, len(ids))
		}
		if !abQuiet {
			fmt.Fprintf(out, "✓ Analyzed %d datasets\n", len(ids))
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// writeBatchReport writes the report of j to abOutDir. Files with the same
// base name get a __2, __3 suffix.
func writeBatchReport(j *jobs.Job, used map[string]int) (string, error) {
	if err := utils.EnsureDir(abOutDir); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(j.Filename, filepath.Ext(j.Filename))
	used[base]++
	if n := used[base]; n > 1 {
		base = fmt.Sprintf("%s__%d", base, n)
	}
	ext := ".summary.md"
	data := []byte(j.Result.Markdown())
	if abJSON {
		ext = ".analysis.json"
		b, err := utils.PrettyJSON(j.Result)
		if err != nil {
			return "", err
		}
		data = b
	}
	path := filepath.Join(abOutDir, base+ext)
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for per-file reports")
	analyzeBatchCmd.Flags().BoolVar(&abJSON, "json", false, "write reports as JSON result records")
	analyzeBatchCmd.Flags().IntVar(&abWorkers, "workers", 0, "concurrent analyses (default from config)")
	analyzeBatchCmd.Flags().StringVar(&abUser, "user", "local", "owner recorded on the jobs")
	analyzeBatchCmd.Flags().BoolVar(&abPersist, "persist", false, "record jobs in the configured store")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "only print failures")
	analyzeBatchCmd.Flags().BoolVar(&abNoAI, "no-ai", false, "skip the generator and use the built-in summary")
}

