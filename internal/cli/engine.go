package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/pages"
	"github.com/kavach/engine/internal/pdf"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [input] [output]",
	Short: "Compress a PDF with ghostscript",
	Args:  cobra.ExactArgs(2),
	RunE:  runOptimize,
}

var pagesCmd = &cobra.Command{
	Use:   "pages [range]",
	Short: "Resolve a page range against a page count",
	Long: `Resolve a page range such as "1-3,5" against --total pages (or the page
count of --file) and print the selected 1-based page numbers.`,
	Args: cobra.ExactArgs(1),
	RunE: runPages,
}

var (
	presetFlag  string
	qualityFlag int
	timeoutFlag time.Duration
	processProc engine.ProcessRunner = engine.ExecRunner{WaitDelay: 5 * time.Second}
	totalFlag   int
	pagesFile   string
	strictFlag  bool
)

func init() {
	optimizeCmd.Flags().StringVar(&presetFlag, "preset", "screen", "Ghostscript preset (screen, ebook, printer, prepress)")
	optimizeCmd.Flags().IntVar(&qualityFlag, "quality", 75, "JPEG quality for downsampled images")
	optimizeCmd.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "Maximum time for the ghostscript run")

	pagesCmd.Flags().IntVarP(&totalFlag, "total", "n", 0, "Total number of pages")
	pagesCmd.Flags().StringVarP(&pagesFile, "file", "f", "", "Read the page count from this PDF")
	pagesCmd.Flags().BoolVar(&strictFlag, "strict", false, "Fail on malformed or out-of-range segments")

	rootCmd.AddCommand(optimizeCmd, pagesCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	runner := engine.NewRunner(processProc, engine.Options{Timeout: timeoutFlag, MaxConcurrent: 1}, newLogger().Named("engine"))
	tools := engine.NewTools(runner, engine.DefaultChains())

	start := time.Now()
	res, err := tools.Optimize(context.Background(), args[0], args[1], engine.NormalizePreset(presetFlag), qualityFlag)
	if err != nil {
		return fmt.Errorf("optimize failed: %w", err)
	}
	cmd.Printf("Optimized %s with %s in %s\n", args[1], res.Tool, time.Since(start).Round(time.Millisecond))
	return nil
}

func runPages(cmd *cobra.Command, args []string) error {
	total := totalFlag
	if pagesFile != "" {
		n, err := pdf.NewService(newLogger().Named("pdf")).PageCount(pagesFile)
		if err != nil {
			return fmt.Errorf("failed to read page count: %w", err)
		}
		total = n
	}
	if total <= 0 {
		return fmt.Errorf("--total or --file is required")
	}

	var (
		indices []int
		err     error
	)
	if strictFlag {
		indices, err = pages.ResolveStrict(args[0], total)
		if err != nil {
			return fmt.Errorf("invalid page range: %w", err)
		}
	} else {
		indices = pages.Resolve(args[0], total)
	}

	if len(indices) == 0 {
		cmd.Println("No pages selected")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(pages.Selection(indices), ","))
	return nil
}
