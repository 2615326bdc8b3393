package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	statement "billing-desk/internal/statement/domain"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print a client statement, newest first",
		Example: `  statementctl show --client 42
  statementctl show --client 42 --filter unpaid`,
		RunE: runShow,
	}
}

func runShow(cmd *cobra.Command, _ []string) error {
	clientID, _ := cmd.Flags().GetString("client")
	filterValue, _ := cmd.Flags().GetString("filter")
	filter, err := statement.ParseFilter(filterValue)
	if err != nil {
		return fmt.Errorf("%w: %q", err, filterValue)
	}

	svc, err := loadService()
	if err != nil {
		return err
	}
	view, err := svc.View(cmd.Context(), clientID, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s) filter=%s\n\n", view.ClientName, view.ClientID, view.Filter)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "date\ttype\tdescription\tdebit\tcredit\tbalance\t")
	for _, line := range view.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			line.Date.Format("2006-01-02"),
			line.Type,
			line.Description,
			line.Debit.StringFixed(2),
			line.Credit.StringFixed(2),
			line.Balance.StringFixed(2),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\ntotal debit: %s\ntotal credit: %s\nbalance: %s\n",
		view.Totals.TotalDebit.StringFixed(2),
		view.Totals.TotalCredit.StringFixed(2),
		view.Totals.Balance.StringFixed(2),
	)
	return nil
}
