package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kavach/engine/internal/auth"
	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/storage"
)

var janitorCmd = &cobra.Command{
	Use:   "janitor",
	Short: "Run one retention sweep over the engine's storage",
	Long: `Apply the retention policy once: remove artifacts older than the maximum age,
then the oldest ones until the output directory fits the byte budget, and
finally stale leftovers in the upload and work directories.

Directories and limits come from the environment (TEMP_DIR, OUTPUT_DIR,
RETENTION_MAX_AGE, RETENTION_MAX_BYTES) unless overridden by flags.`,
	Args: cobra.NoArgs,
	RunE: runJanitor,
}

var tokenCmd = &cobra.Command{
	Use:   "token [subject]",
	Short: "Issue a bearer token for the given owner",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var (
	maxAgeFlag   time.Duration
	maxBytesFlag string
	tempDirFlag  string
	ttlFlag      time.Duration
)

func init() {
	janitorCmd.Flags().DurationVar(&maxAgeFlag, "max-age", 0, "Override RETENTION_MAX_AGE")
	janitorCmd.Flags().StringVar(&maxBytesFlag, "max-bytes", "", "Override RETENTION_MAX_BYTES (e.g. 500MB)")
	janitorCmd.Flags().StringVar(&tempDirFlag, "temp-dir", "", "Override TEMP_DIR and the directories under it")

	tokenCmd.Flags().DurationVar(&ttlFlag, "ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(janitorCmd, tokenCmd)
}

func runJanitor(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if tempDirFlag != "" {
		cfg.Storage.TempDir = tempDirFlag
		cfg.Storage.UploadDir = filepath.Join(tempDirFlag, "uploads")
		cfg.Storage.OutputDir = filepath.Join(tempDirFlag, "outputs")
	}

	policy := storage.RetentionPolicy{MaxAge: cfg.Storage.RetentionMaxAge, MaxBytes: cfg.Storage.RetentionMaxBytes}
	if maxAgeFlag > 0 {
		policy.MaxAge = maxAgeFlag
	}
	if maxBytesFlag != "" {
		n, err := config.ParseByteSize(maxBytesFlag)
		if err != nil {
			return fmt.Errorf("invalid --max-bytes: %w", err)
		}
		policy.MaxBytes = n
	}

	log := newLogger()
	store, err := storage.NewService(cfg, nil, log.Named("storage"))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	report, err := storage.NewJanitor(store, policy, log.Named("janitor")).Sweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	cmd.Printf("Removed by age:  %d\n", report.RemovedByAge)
	cmd.Printf("Removed by size: %d\n", report.RemovedBySize)
	cmd.Printf("Removed stale:   %d\n", report.RemovedStale)
	cmd.Printf("Retained:        %d files, %d bytes\n", report.RetainedFiles, report.RetainedBytes)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not configured")
	}

	token, err := auth.NewVerifier(cfg.Security.JWTSecret, cfg.EngineSecret).IssueToken(args[0], ttlFlag)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
