package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqdrop/reqdrop/internal/config"
	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/internal/logging"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/services"
)

// NewCheckCmd reports referential-integrity problems; --fix additionally
// repairs orphaned requests by resolving owners from recipient emails.
func NewCheckCmd() *cobra.Command {
	var cfg config.ServerCmdConfig
	loader := config.NewConfigLoader()
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check and optionally repair referential integrity",
		Long: `Check for file requests without an owning user and uploaded files without
an owning request.

Examples:
  # Report problems without making changes
  reqdrop check

  # Repair orphaned requests
  reqdrop check --fix`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, _ := cmd.Flags().GetBool("fix")
			return runCheckCmd(cmd, &cfg, fix)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loader.Load(cmd, &cfg); err != nil {
				return err
			}
			if cfg.DB.DataSource == "" {
				return fmt.Errorf("required flag db-data-source is not set")
			}
			return nil
		},
	}
	config.AddCommonFlags(cmd.Flags(), &cfg)
	cmd.Flags().Bool("fix", false, "Repair orphaned requests instead of only reporting")
	return cmd
}

func runCheckCmd(cmd *cobra.Command, cfg *config.ServerCmdConfig, fix bool) error {
	lg := logging.DefaultLogger()

	db, err := database.NewDatabase(&cfg.DB, lg.Sugar())
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	integrity := services.NewIntegrityService(repository.New(db), lg)

	var report *services.IntegrityReport
	if fix {
		report, err = integrity.Repair(cmd.Context())
	} else {
		report, err = integrity.Check(cmd.Context())
	}
	if err != nil {
		return err
	}

	fmt.Printf("Orphaned requests:     %d\n", report.OrphanedRequests)
	fmt.Printf("Repaired requests:     %d\n", report.RepairedRequests)
	fmt.Printf("Unrepairable requests: %d\n", report.UnrepairableRequests)
	fmt.Printf("Orphaned files:        %d\n", len(report.OrphanedFiles))
	for _, f := range report.OrphanedFiles {
		fmt.Printf("  - %s (%s, %d bytes)\n", f.ID, f.Filename, f.FileSize)
	}
	if !fix && report.OrphanedRequests > 0 {
		fmt.Println("\nRun again with --fix to repair orphaned requests.")
	}
	return nil
}
