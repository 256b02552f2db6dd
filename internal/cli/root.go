// Package cli implementa kavachctl: las operaciones del motor sobre archivos locales,
// sin pasar por el servidor HTTP.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/pkg/logger"
)

// version se fija en build con -ldflags "-X .../internal/cli.version=..."
var version = "dev"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "kavachctl",
	Short:         "Kavach document engine command line",
	Long:          `Run Kavach document operations on local files and maintain the engine's storage.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("kavachctl version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	rootCmd.AddCommand(versionCmd)
}

// Execute ejecuta el comando raíz
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *logger.Logger {
	return logger.New(logLevel, logFormat)
}

func newPDFService() *pdf.PDFCPUService {
	return pdf.NewService(newLogger().Named("pdf"))
}
