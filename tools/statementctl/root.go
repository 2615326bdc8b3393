package main

import (
	"github.com/spf13/cobra"

	"billing-desk/internal/backend"
	"billing-desk/internal/config"
	"billing-desk/internal/observability/logging"
	"billing-desk/internal/statement/application"
	"billing-desk/internal/statement/export"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "statementctl",
		Short: "Print or export client statements from the billing backend",
		Long: `statementctl reads a client's receivables, payments and credits from the
billing backend and prints the statement or writes it as XLSX, PDF or print HTML.

Configuration comes from the environment (or a .env file):
  BACKEND_BASE_URL - billing backend base URL (required)
  BACKEND_TOKEN    - bearer token for the backend
  EXPORT_PROFILE   - YAML export profile (labels, colors, font)`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("client", "", "Client id")
	root.PersistentFlags().String("filter", "all", "Statement filter: all, unpaid or paid")
	_ = root.MarkPersistentFlagRequired("client")

	root.AddCommand(newShowCmd(), newExportCmd())
	return root
}

// loadService builds the statement service from the environment.
func loadService() (*application.StatementService, error) {
	cfg, err := config.Load(false)
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return nil, err
	}

	profile := export.DefaultProfile()
	if cfg.ExportProfile != "" {
		profile, err = export.LoadProfile(cfg.ExportProfile)
		if err != nil {
			return nil, err
		}
	}
	client, err := backend.NewClient(
		cfg.BackendBaseURL,
		cfg.BackendToken,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithLogger(logging.WithComponent("backend")),
	)
	if err != nil {
		return nil, err
	}
	return application.NewStatementService(client, nil, export.NewRegistry(profile), application.SystemClock{}, logging.WithComponent("statementctl"))
}
