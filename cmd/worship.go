package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/simonvc/fundledger/internal/client"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/spf13/cobra"
)

var worshipCmd = &cobra.Command{
	Use:   "worship",
	Short: "Record worship service offerings",
}

var worshipRecordCmd = &cobra.Command{
	Use:   "record [file]",
	Short: "Record a worship service from a JSON sheet (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in ledger.WorshipInput
		if err := readJSONFile(args[0], &in); err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		rec, err := c.CreateWorshipRecord(context.Background(), in)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(rec)
		}
		fmt.Printf("Worship record %s: %s %s\n", rec.ID, rec.ServiceDate, rec.ServiceType)
		printBuckets(rec.Totals)
		fmt.Printf("Anonymous offering %s, grand total %s, attendance %d\n",
			ledger.FormatAmount(rec.AnonymousOffering), ledger.FormatAmount(rec.GrandTotal), rec.TotalAttendance)
		return nil
	},
}

var worshipListQuery client.WorshipQuery

var worshipListCmd = &cobra.Command{
	Use:   "list",
	Short: "List worship records",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := c.ListWorshipRecords(context.Background(), worshipListQuery)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("No worship records found.")
			return nil
		}
		header("%-36s %-10s %-8s %12s %6s", "ID", "DATE", "TYPE", "TOTAL", "ATT")
		for _, r := range list {
			fmt.Printf("%-36s %-10s %-8s %12s %6d\n", r.ID, r.ServiceDate, r.ServiceType, ledger.FormatAmount(r.GrandTotal), r.TotalAttendance)
		}
		return nil
	},
}

var worshipShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a worship record with its contributions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		rec, err := c.GetWorshipRecord(context.Background(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(rec)
		}
		fmt.Printf("%s  church %d  %s %s  preacher %s\n", rec.ID, rec.ChurchID, rec.ServiceDate, rec.ServiceType, rec.Preacher)
		printBuckets(rec.Totals)
		for _, ct := range rec.Contributions {
			fmt.Printf("  %-30s %-16s %12s\n", truncate(ct.DonorName, 30), ct.Category, ledger.FormatAmount(ct.Amount))
		}
		return nil
	},
}

func printBuckets(t ledger.BucketTotals) {
	for _, b := range ledger.AllBuckets {
		fmt.Printf("  %-10s %12s\n", b, ledger.FormatAmount(t.Get(b)))
	}
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Submit and list monthly church reports",
}

var (
	reportChurch int64
	reportMonth  int
	reportYear   int
	reportPost   []string
)

// parsePostings reads bucket=fundID pairs.
func parsePostings(pairs []string) (map[ledger.Bucket]int64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[ledger.Bucket]int64, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --post %q, want bucket=fund", p)
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fund id in --post %q", p)
		}
		out[ledger.Bucket(k)] = id
	}
	return out, nil
}

var reportSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Aggregate a church's month of worship records into a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		postings, err := parsePostings(reportPost)
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		rep, err := c.SubmitReport(context.Background(), ledger.ReportRequest{
			ChurchID: reportChurch,
			Month:    reportMonth,
			Year:     reportYear,
			Postings: postings,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(rep)
		}
		fmt.Printf("Report %s for %02d/%d: %d services, total %s\n", rep.ID, rep.Month, rep.Year, rep.WorshipCount, ledger.FormatAmount(rep.Total))
		printBuckets(rep.Totals)
		for _, t := range rep.Transactions {
			printTxnLine(t)
		}
		return nil
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monthly reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := c.ListReports(context.Background(), reportChurch, reportYear)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("No reports found.")
			return nil
		}
		header("%-36s %-6s %-7s %8s %12s", "ID", "CHURCH", "PERIOD", "SERVICES", "TOTAL")
		for _, r := range list {
			fmt.Printf("%-36s %-6d %02d/%d %8d %12s\n", r.ID, r.ChurchID, r.Month, r.Year, r.WorshipCount, ledger.FormatAmount(r.Total))
		}
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a monthly report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		rep, err := c.GetReport(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(rep)
	},
}

func init() {
	wf := worshipListCmd.Flags()
	wf.Int64Var(&worshipListQuery.ChurchID, "for-church", 0, "Church id (default the actor's church)")
	wf.StringVar(&worshipListQuery.From, "from", "", "From date YYYY-MM-DD")
	wf.StringVar(&worshipListQuery.To, "to", "", "To date YYYY-MM-DD")
	wf.IntVar(&worshipListQuery.Limit, "limit", 100, "Maximum rows")

	sf := reportSubmitCmd.Flags()
	sf.Int64Var(&reportChurch, "for-church", 0, "Church id")
	sf.IntVar(&reportMonth, "month", 0, "Month 1-12")
	sf.IntVar(&reportYear, "year", 0, "Year")
	sf.StringArrayVar(&reportPost, "post", nil, "Post a bucket total to a fund, e.g. tithe=3 (repeatable)")
	reportSubmitCmd.MarkFlagRequired("for-church")
	reportSubmitCmd.MarkFlagRequired("month")
	reportSubmitCmd.MarkFlagRequired("year")

	reportListCmd.Flags().Int64Var(&reportChurch, "for-church", 0, "Church id")
	reportListCmd.Flags().IntVar(&reportYear, "year", 0, "Year")

	worshipCmd.AddCommand(worshipRecordCmd, worshipListCmd, worshipShowCmd)
	reportCmd.AddCommand(reportSubmitCmd, reportListCmd, reportShowCmd)
	rootCmd.AddCommand(worshipCmd, reportCmd)
}
