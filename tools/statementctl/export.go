package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	statement "billing-desk/internal/statement/domain"
	"billing-desk/internal/statement/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a client statement as XLSX, PDF or print HTML",
		Example: `  statementctl export --client 42 --format pdf
  statementctl export --client 42 --format xlsx --filter paid --out ./exports`,
		RunE: runExport,
	}
	cmd.Flags().String("format", "xlsx", "Export format: xlsx, pdf or html")
	cmd.Flags().String("out", ".", "Output directory")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	clientID, _ := cmd.Flags().GetString("client")
	filterValue, _ := cmd.Flags().GetString("filter")
	formatValue, _ := cmd.Flags().GetString("format")
	outDir, _ := cmd.Flags().GetString("out")

	filter, err := statement.ParseFilter(filterValue)
	if err != nil {
		return fmt.Errorf("%w: %q", err, filterValue)
	}
	format, err := export.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	svc, err := loadService()
	if err != nil {
		return err
	}
	doc, err := svc.Export(cmd.Context(), clientID, filter, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outDir, doc.Filename)
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(doc.Data))
	return nil
}
