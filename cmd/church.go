package cmd

import (
	"context"
	"fmt"

	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/spf13/cobra"
)

var churchCmd = &cobra.Command{
	Use:   "church",
	Short: "Manage local churches",
}

var (
	churchName   string
	churchCity   string
	churchPastor string
)

var churchCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a local church",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		ch, err := c.CreateChurch(context.Background(), &ledger.Church{Name: churchName, City: churchCity, Pastor: churchPastor})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(ch)
		}
		fmt.Printf("Church created: %d %s\n", ch.ID, ch.Name)
		return nil
	},
}

var churchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List churches",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := c.ListChurches(context.Background())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(list)
		}
		header("%-6s %-30s %-20s %s", "ID", "NAME", "CITY", "PASTOR")
		for _, ch := range list {
			fmt.Printf("%-6d %-30s %-20s %s\n", ch.ID, truncate(ch.Name, 30), truncate(ch.City, 20), ch.Pastor)
		}
		return nil
	},
}

var churchImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Register churches from a JSON array (use - for stdin)",
	Long:  "Register each church in the file, e.g. [{\"name\":\"Iglesia Central\",\"city\":\"Lima\"}]. Stops at the first failure.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var churches []ledger.Church
		if err := readJSONFile(args[0], &churches); err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		for i := range churches {
			ch, err := c.CreateChurch(context.Background(), &churches[i])
			if err != nil {
				return fmt.Errorf("church %d (%s): %w", i+1, churches[i].Name, err)
			}
			fmt.Printf("Church created: %d %s\n", ch.ID, ch.Name)
		}
		fmt.Printf("%d churches imported.\n", len(churches))
		return nil
	},
}

var donorCmd = &cobra.Command{
	Use:   "donor",
	Short: "Manage a church's donor register",
}

var (
	donorChurch     int64
	donorName       string
	donorNationalID string
	donorPhone      string
	donorSearch     string
)

var donorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a donor",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		d, err := c.CreateDonor(context.Background(), &ledger.Donor{
			ChurchID:   donorChurch,
			Name:       donorName,
			NationalID: donorNationalID,
			Phone:      donorPhone,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(d)
		}
		fmt.Printf("Donor created: %d %s\n", d.ID, d.Name)
		return nil
	},
}

var donorResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Find a donor by national id or name, registering one if none matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		d, err := c.ResolveDonor(context.Background(), donorChurch, donorName, donorNationalID)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(d)
		}
		fmt.Printf("%d %s %s\n", d.ID, d.Name, d.NationalID)
		return nil
	},
}

var donorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active donors",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := c.ListDonors(context.Background(), donorChurch, donorSearch)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("No donors found.")
			return nil
		}
		header("%-6s %-30s %-16s %s", "ID", "NAME", "NATIONAL ID", "PHONE")
		for _, d := range list {
			fmt.Printf("%-6d %-30s %-16s %s\n", d.ID, truncate(d.Name, 30), d.NationalID, d.Phone)
		}
		return nil
	},
}

var donorDeactivateCmd = &cobra.Command{
	Use:   "deactivate [id]",
	Short: "Deactivate a donor",
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
		if err := c.DeactivateDonor(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("Donor %d deactivated.\n", id)
		return nil
	},
}

func init() {
	cf := churchCreateCmd.Flags()
	cf.StringVar(&churchName, "name", "", "Church name")
	cf.StringVar(&churchCity, "city", "", "City")
	cf.StringVar(&churchPastor, "pastor", "", "Pastor")
	churchCreateCmd.MarkFlagRequired("name")

	for _, c := range []*cobra.Command{donorCreateCmd, donorResolveCmd, donorListCmd} {
		c.Flags().Int64Var(&donorChurch, "for-church", 0, "Church id (default the actor's church)")
	}
	for _, c := range []*cobra.Command{donorCreateCmd, donorResolveCmd} {
		c.Flags().StringVar(&donorName, "name", "", "Donor name")
		c.Flags().StringVar(&donorNationalID, "national-id", "", "National id number")
	}
	donorCreateCmd.Flags().StringVar(&donorPhone, "phone", "", "Phone")
	donorListCmd.Flags().StringVar(&donorSearch, "search", "", "Match on name or national id")

	churchCmd.AddCommand(churchCreateCmd, churchListCmd, churchImportCmd)
	donorCmd.AddCommand(donorCreateCmd, donorResolveCmd, donorListCmd, donorDeactivateCmd)
	rootCmd.AddCommand(churchCmd, donorCmd)
}
