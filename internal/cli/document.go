package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/internal/placement"
	"github.com/kavach/engine/internal/utils"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [output] [input...]",
	Short: "Merge PDFs in the given order",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runMerge,
}

var splitCmd = &cobra.Command{
	Use:   "split [input] [output-dir]",
	Short: "Write one PDF per selected page",
	Args:  cobra.ExactArgs(2),
	RunE:  runSplit,
}

var rotateCmd = &cobra.Command{
	Use:   "rotate [input] [output]",
	Short: "Rotate pages by 90, 180 or 270 degrees",
	Args:  cobra.ExactArgs(2),
	RunE:  runRotate,
}

var watermarkCmd = &cobra.Command{
	Use:   "watermark [input] [output]",
	Short: "Stamp a text or image watermark",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatermark,
}

var infoCmd = &cobra.Command{
	Use:   "info [input]",
	Short: "Show document metadata and page sizes",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var (
	pagesFlag  string
	angleFlag  int
	wmText     string
	wmImage    string
	wmPosition string
	wmOpacity  float64
	wmFontSize int
	wmColor    string
	wmRotation float64
	wmMosaic   bool
	wmUnder    bool
)

func init() {
	splitCmd.Flags().StringVarP(&pagesFlag, "pages", "p", "", "Pages to extract (e.g. 1-3,5); empty means all")

	rotateCmd.Flags().IntVarP(&angleFlag, "angle", "a", 90, "Rotation angle (90, 180, 270)")
	rotateCmd.Flags().StringVarP(&pagesFlag, "pages", "p", "", "Pages to rotate; empty means all")

	watermarkCmd.Flags().StringVarP(&wmText, "text", "t", "", "Watermark text")
	watermarkCmd.Flags().StringVar(&wmImage, "image", "", "Watermark image (png, jpeg, gif, bmp, tiff, webp)")
	watermarkCmd.Flags().StringVarP(&pagesFlag, "pages", "p", "", "Pages to stamp; empty means all")
	watermarkCmd.Flags().StringVar(&wmPosition, "position", "center", "Anchor position (top-left ... bottom-right)")
	watermarkCmd.Flags().Float64Var(&wmOpacity, "opacity", 0.15, "Opacity between 0 and 1")
	watermarkCmd.Flags().IntVar(&wmFontSize, "font-size", 48, "Font size in points")
	watermarkCmd.Flags().StringVar(&wmColor, "color", "#000000", "Text color")
	watermarkCmd.Flags().Float64Var(&wmRotation, "rotation", -45, "Rotation in degrees")
	watermarkCmd.Flags().BoolVar(&wmMosaic, "mosaic", false, "Tile the watermark over the page")
	watermarkCmd.Flags().BoolVar(&wmUnder, "under", false, "Draw below the page content")

	rootCmd.AddCommand(mergeCmd, splitCmd, rotateCmd, watermarkCmd, infoCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	out, inputs := args[0], args[1:]
	if err := newPDFService().Merge(inputs, out); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	cmd.Printf("Merged %d documents into %s\n", len(inputs), out)
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	in, outDir := args[0], args[1]
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	parts, err := newPDFService().Split(in, outDir, utils.BaseName(filepath.Base(in)), pagesFlag)
	if err != nil {
		return fmt.Errorf("split failed: %w", err)
	}
	for _, p := range parts {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func runRotate(cmd *cobra.Command, args []string) error {
	angle := pdf.NormalizeAngle(angleFlag)
	if angle == 0 {
		return fmt.Errorf("angle must be one of 90, 180 or 270, got %d", angleFlag)
	}
	if err := newPDFService().Rotate(args[0], args[1], angle, pagesFlag); err != nil {
		return fmt.Errorf("rotate failed: %w", err)
	}
	cmd.Printf("Rotated %s by %d degrees\n", args[1], angle)
	return nil
}

func runWatermark(cmd *cobra.Command, args []string) error {
	opts := pdf.WatermarkOptions{
		Text:     wmText,
		Pages:    pagesFlag,
		FontSize: wmFontSize,
		Color:    utils.HexColorOrDefault(wmColor, "#000000"),
		Opacity:  utils.ClampFloat(wmOpacity, 0, 1),
		Rotation: wmRotation,
		Position: placement.ParsePosition(wmPosition),
		Margin:   20,
		Scale:    0.3,
		Mosaic:   wmMosaic,
		OnTop:    !wmUnder,
	}

	if wmImage != "" {
		tmp, err := os.MkdirTemp("", "kavachctl-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		png, _, _, err := pdf.NormalizeImage(wmImage, filepath.Join(tmp, "watermark.png"))
		if err != nil {
			return err
		}
		opts.ImagePath = png
	}

	if err := newPDFService().Watermark(args[0], args[1], opts); err != nil {
		return fmt.Errorf("watermark failed: %w", err)
	}
	cmd.Printf("Watermarked %s\n", args[1])
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := newPDFService().Inspect(args[0])
	if err != nil {
		return fmt.Errorf("failed to inspect document: %w", err)
	}

	cmd.Printf("File:      %s\n", info.FilePath)
	cmd.Printf("Size:      %d bytes\n", info.FileSize)
	cmd.Printf("Version:   %s\n", info.Version)
	cmd.Printf("Pages:     %d\n", info.PageCount)
	cmd.Printf("Encrypted: %t\n", info.Encrypted)
	for _, field := range []struct{ label, value string }{
		{"Title", info.Title}, {"Author", info.Author}, {"Producer", info.Producer},
	} {
		if strings.TrimSpace(field.value) != "" {
			cmd.Printf("%-10s %s\n", field.label+":", field.value)
		}
	}
	for i, p := range info.Pages {
		cmd.Printf("  page %d: %.0f x %.0f pt\n", i+1, p.Width, p.Height)
	}
	return nil
}
