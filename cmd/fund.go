package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/spf13/cobra"
)

var fundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Manage funds",
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// fund create
var (
	fundCreateName        string
	fundCreateType        string
	fundCreateDescription string
)

var fundCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new fund",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		f, err := c.CreateFund(context.Background(), fundCreateName, ledger.FundType(fundCreateType), fundCreateDescription)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(f)
		}
		fmt.Printf("Fund created: %d %s (%s)\n", f.ID, f.Name, f.Type)
		return nil
	},
}

// fund list
var (
	fundListType   string
	fundListActive bool
)

var fundListCmd = &cobra.Command{
	Use:   "list",
	Short: "List funds",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		funds, err := c.ListFunds(context.Background(), ledger.FundType(fundListType), fundListActive)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(funds)
		}
		if len(funds) == 0 {
			fmt.Println("No funds found.")
			return nil
		}

		header("%-6s %-30s %-12s %15s %s", "ID", "NAME", "TYPE", "BALANCE", "ACTIVE")
		for _, f := range funds {
			fmt.Printf("%-6d %-30s %-12s %s %v\n", f.ID, truncate(f.Name, 30), f.Type, amountText(f.CurrentBalance, 15), f.IsActive)
		}
		return nil
	},
}

var fundGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get fund details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		f, err := c.GetFund(context.Background(), id)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(f)
		}
		fmt.Printf("ID:          %d\n", f.ID)
		fmt.Printf("Name:        %s\n", f.Name)
		fmt.Printf("Type:        %s\n", f.Type)
		fmt.Printf("Description: %s\n", f.Description)
		fmt.Printf("Balance:     %s\n", ledger.FormatAmount(f.CurrentBalance))
		fmt.Printf("Active:      %v\n", f.IsActive)
		fmt.Printf("Created:     %s by %s\n", f.CreatedAt.Format("2006-01-02 15:04:05"), f.CreatedBy)
		return nil
	},
}

var fundBalanceCmd = &cobra.Command{
	Use:   "balance [id]",
	Short: "Get fund balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		b, err := c.FundBalance(context.Background(), id)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(b)
		}
		fmt.Printf("Fund:    %d %s\n", b.FundID, b.Name)
		fmt.Printf("Balance: %s\n", ledger.FormatAmount(b.Balance))
		return nil
	},
}

var fundReconcileCmd = &cobra.Command{
	Use:   "reconcile [id]",
	Short: "Compare a fund's balance with the sum of its transactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		r, err := c.ReconcileFund(context.Background(), id)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(r)
		}
		fmt.Printf("Stored balance: %s\n", ledger.FormatAmount(r.StoredBalance))
		fmt.Printf("Ledger balance: %s (%d transactions)\n", ledger.FormatAmount(r.LedgerBalance), r.Transactions)
		if !r.Balanced {
			return fmt.Errorf("fund %d is out of balance", id)
		}
		fmt.Println(successStyle.Render("Balanced."))
		return nil
	},
}

var fundSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the national fund catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		created, err := c.SeedFunds(context.Background())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(created)
		}
		for _, f := range created {
			fmt.Printf("Created %d %s (%s)\n", f.ID, f.Name, f.Type)
		}
		fmt.Printf("%d funds created.\n", len(created))
		return nil
	},
}

var fundDeactivateCmd = &cobra.Command{
	Use:   "deactivate [id]",
	Short: "Deactivate an empty fund",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		f, err := c.DeactivateFund(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Fund %d %s deactivated.\n", f.ID, f.Name)
		return nil
	},
}

var fundChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Show the national fund catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		chart, err := c.GetChart(context.Background())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(chart)
		}
		for _, e := range chart {
			fmt.Printf("%-20s %-12s %s\n", e.Name, e.Type, e.Description)
		}
		return nil
	},
}

func init() {
	fundCreateCmd.Flags().StringVar(&fundCreateName, "name", "", "Fund name")
	fundCreateCmd.Flags().StringVar(&fundCreateType, "type", "general", "Fund type (national, designated, general, special)")
	fundCreateCmd.Flags().StringVar(&fundCreateDescription, "description", "", "Description")
	fundCreateCmd.MarkFlagRequired("name")

	fundListCmd.Flags().StringVar(&fundListType, "type", "", "Filter by type")
	fundListCmd.Flags().BoolVar(&fundListActive, "active", false, "Only active funds")

	fundCmd.AddCommand(fundCreateCmd, fundListCmd, fundGetCmd, fundBalanceCmd,
		fundReconcileCmd, fundSeedCmd, fundDeactivateCmd, fundChartCmd)
	rootCmd.AddCommand(fundCmd)
}
