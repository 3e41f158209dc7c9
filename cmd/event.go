package cmd

import (
	"context"
	"fmt"

	"github.com/simonvc/fundledger/internal/client"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage event budgets and their approval",
}

// event create
var (
	evFund        int64
	evChurch      int64
	evName        string
	evDescription string
	evDate        string
	evFile        string
)

var eventCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an event in draft",
	Long:  "Create an event from flags, or from a JSON EventInput with --file (use - for stdin).",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in ledger.EventInput
		if evFile != "" {
			if err := readJSONFile(evFile, &in); err != nil {
				return err
			}
		} else {
			in = ledger.EventInput{FundID: evFund, Name: evName, Description: evDescription, EventDate: evDate}
			if evChurch > 0 {
				in.ChurchID = &evChurch
			}
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		e, err := c.CreateEvent(context.Background(), in)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(e)
		}
		fmt.Printf("Event created: %s %s [%s]\n", e.ID, e.Name, e.Status)
		return nil
	},
}

var evListQuery client.EventQuery
var evListStatus string

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events",
	RunE: func(cmd *cobra.Command, args []string) error {
		evListQuery.Status = ledger.EventStatus(evListStatus)
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := c.ListEvents(context.Background(), evListQuery)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("No events found.")
			return nil
		}
		header("%-36s %-10s %-6s %-16s %s", "ID", "DATE", "FUND", "STATUS", "NAME")
		for _, e := range list {
			fmt.Printf("%-36s %-10s %-6d %s %s\n", e.ID, e.EventDate, e.FundID, statusText(e.Status, 16), e.Name)
		}
		return nil
	},
}

var eventShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an event with its lines, totals and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		d, err := c.GetEvent(context.Background(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(d)
		}
		e := d.Event
		fmt.Printf("%s  %s  [%s]\n", e.ID, headerStyle.Render(e.Name), statusText(e.Status, 0))
		fmt.Printf("Fund %d, date %s, created by %s\n", e.FundID, e.EventDate, e.CreatedBy)
		if e.RejectionReason != "" {
			fmt.Printf("Rejection: %s\n", e.RejectionReason)
		}
		fmt.Println("\nBudget:")
		for _, b := range d.BudgetItems {
			fmt.Printf("  %-36s %-20s %12s\n", b.ID, truncate(b.Category, 20), ledger.FormatAmount(b.ProjectedAmount))
		}
		fmt.Println("\nActuals:")
		for _, a := range d.Actuals {
			fmt.Printf("  %-36s %-8s %-30s %12s\n", a.ID, a.LineType, truncate(a.Description, 30), ledger.FormatAmount(a.Amount))
		}
		t := d.Totals
		fmt.Printf("\nProjected %s  Income %s  Expense %s  Net %s  Variance %s\n",
			ledger.FormatAmount(t.Projected), ledger.FormatAmount(t.Income), ledger.FormatAmount(t.Expense),
			amountText(t.Net, 0), amountText(t.Variance, 0))
		fmt.Println("\nHistory:")
		for _, h := range d.Audit {
			fmt.Printf("  %s %s -> %s by %s %s\n", h.ChangedAt.Format("2006-01-02 15:04"), h.PreviousStatus, h.NewStatus, h.ChangedBy, h.Comment)
		}
		if d.Transaction != nil {
			fmt.Printf("\nPosted as %s\n", d.Transaction.ID)
		}
		return nil
	},
}

var evUpdateName, evUpdateDescription, evUpdateDate string

var eventUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change the header of an editable event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var u ledger.EventUpdate
		if cmd.Flags().Changed("name") {
			u.Name = &evUpdateName
		}
		if cmd.Flags().Changed("description") {
			u.Description = &evUpdateDescription
		}
		if cmd.Flags().Changed("date") {
			u.EventDate = &evUpdateDate
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		e, err := c.UpdateEvent(context.Background(), args[0], u)
		if err != nil {
			return err
		}
		fmt.Printf("Event %s updated.\n", e.ID)
		return nil
	},
}

var eventSubmitCmd = &cobra.Command{
	Use:   "submit [id]",
	Short: "Submit an event for approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		e, err := c.SubmitEvent(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Event %s is %s.\n", e.ID, statusText(e.Status, 0))
		return nil
	},
}

var evComment string

var eventApproveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve a submitted event and post its net to the fund",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		a, err := c.ApproveEvent(context.Background(), args[0], evComment)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(a)
		}
		fmt.Printf("Event %s approved.\n", a.Event.ID)
		printTxnLine(*a.Transaction)
		return nil
	},
}

var (
	evRejectReason   string
	evRejectResubmit bool
)

var eventRejectCmd = &cobra.Command{
	Use:   "reject [id]",
	Short: "Reject a submitted event, or send it back for revision with --resubmit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		e, err := c.RejectEvent(context.Background(), args[0], ledger.RejectInput{Reason: evRejectReason, Resubmit: evRejectResubmit})
		if err != nil {
			return err
		}
		fmt.Printf("Event %s is %s.\n", e.ID, statusText(e.Status, 0))
		return nil
	},
}

var eventCancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel an event that has not been decided",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		e, err := c.CancelEvent(context.Background(), args[0], evComment)
		if err != nil {
			return err
		}
		fmt.Printf("Event %s is %s.\n", e.ID, statusText(e.Status, 0))
		return nil
	},
}

// event budget
var (
	budgetCategory    string
	budgetDescription string
	budgetAmount      string
	budgetNotes       string
)

var eventBudgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage an event's budget items",
}

func budgetInput() (ledger.BudgetItemInput, error) {
	amount, err := ledger.ParseAmount("amount", budgetAmount)
	if err != nil {
		return ledger.BudgetItemInput{}, err
	}
	return ledger.BudgetItemInput{Category: budgetCategory, Description: budgetDescription, ProjectedAmount: amount, Notes: budgetNotes}, nil
}

var eventBudgetAddCmd = &cobra.Command{
	Use:   "add [event-id]",
	Short: "Add a budget item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := budgetInput()
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		item, err := c.AddBudgetItem(context.Background(), args[0], in)
		if err != nil {
			return err
		}
		fmt.Printf("Budget item %s added.\n", item.ID)
		return nil
	},
}

var eventBudgetUpdateCmd = &cobra.Command{
	Use:   "update [event-id] [item-id]",
	Short: "Replace a budget item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := budgetInput()
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		if _, err := c.UpdateBudgetItem(context.Background(), args[0], args[1], in); err != nil {
			return err
		}
		fmt.Printf("Budget item %s updated.\n", args[1])
		return nil
	},
}

var eventBudgetDeleteCmd = &cobra.Command{
	Use:   "delete [event-id] [item-id]",
	Short: "Delete a budget item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteBudgetItem(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Budget item %s deleted.\n", args[1])
		return nil
	},
}

// event actual
var (
	actualType        string
	actualDescription string
	actualAmount      string
	actualReceipt     string
	actualNotes       string
)

var eventActualCmd = &cobra.Command{
	Use:   "actual",
	Short: "Manage an event's actual income and expense lines",
}

func actualInput() (ledger.ActualInput, error) {
	amount, err := ledger.ParseAmount("amount", actualAmount)
	if err != nil {
		return ledger.ActualInput{}, err
	}
	return ledger.ActualInput{
		LineType:    ledger.LineType(actualType),
		Description: actualDescription,
		Amount:      amount,
		ReceiptURL:  actualReceipt,
		Notes:       actualNotes,
	}, nil
}

var eventActualAddCmd = &cobra.Command{
	Use:   "add [event-id]",
	Short: "Record an actual line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := actualInput()
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		a, err := c.AddActual(context.Background(), args[0], in)
		if err != nil {
			return err
		}
		fmt.Printf("Actual %s added.\n", a.ID)
		return nil
	},
}

var eventActualUpdateCmd = &cobra.Command{
	Use:   "update [event-id] [actual-id]",
	Short: "Replace an actual line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := actualInput()
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		if _, err := c.UpdateActual(context.Background(), args[0], args[1], in); err != nil {
			return err
		}
		fmt.Printf("Actual %s updated.\n", args[1])
		return nil
	},
}

var eventActualDeleteCmd = &cobra.Command{
	Use:   "delete [event-id] [actual-id]",
	Short: "Delete an actual line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteActual(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Actual %s deleted.\n", args[1])
		return nil
	},
}

func init() {
	cf := eventCreateCmd.Flags()
	cf.Int64Var(&evFund, "fund", 0, "Fund id")
	cf.Int64Var(&evChurch, "for-church", 0, "Church hosting the event")
	cf.StringVar(&evName, "name", "", "Event name")
	cf.StringVar(&evDescription, "description", "", "Description")
	cf.StringVar(&evDate, "date", "", "Event date YYYY-MM-DD")
	cf.StringVar(&evFile, "file", "", "Read the event, with budget items, from a JSON file")

	lf := eventListCmd.Flags()
	lf.Int64Var(&evListQuery.FundID, "fund", 0, "Filter by fund id")
	lf.Int64Var(&evListQuery.ChurchID, "for-church", 0, "Filter by church id")
	lf.StringVar(&evListStatus, "status", "", "Filter by status")
	lf.IntVar(&evListQuery.Limit, "limit", 100, "Maximum rows")

	uf := eventUpdateCmd.Flags()
	uf.StringVar(&evUpdateName, "name", "", "New name")
	uf.StringVar(&evUpdateDescription, "description", "", "New description")
	uf.StringVar(&evUpdateDate, "date", "", "New event date YYYY-MM-DD")

	eventApproveCmd.Flags().StringVar(&evComment, "comment", "", "Comment for the audit trail")
	eventCancelCmd.Flags().StringVar(&evComment, "comment", "", "Comment for the audit trail")
	eventRejectCmd.Flags().StringVar(&evRejectReason, "reason", "", "Rejection reason")
	eventRejectCmd.Flags().BoolVar(&evRejectResubmit, "resubmit", false, "Send back for revision instead of rejecting")
	eventRejectCmd.MarkFlagRequired("reason")

	for _, c := range []*cobra.Command{eventBudgetAddCmd, eventBudgetUpdateCmd} {
		c.Flags().StringVar(&budgetCategory, "category", "", "Budget category")
		c.Flags().StringVar(&budgetDescription, "description", "", "Description")
		c.Flags().StringVar(&budgetAmount, "amount", "", "Projected amount")
		c.Flags().StringVar(&budgetNotes, "notes", "", "Notes")
	}
	for _, c := range []*cobra.Command{eventActualAddCmd, eventActualUpdateCmd} {
		c.Flags().StringVar(&actualType, "type", "expense", "Line type (income or expense)")
		c.Flags().StringVar(&actualDescription, "description", "", "Description")
		c.Flags().StringVar(&actualAmount, "amount", "", "Amount")
		c.Flags().StringVar(&actualReceipt, "receipt", "", "Receipt URL")
		c.Flags().StringVar(&actualNotes, "notes", "", "Notes")
	}

	eventBudgetCmd.AddCommand(eventBudgetAddCmd, eventBudgetUpdateCmd, eventBudgetDeleteCmd)
	eventActualCmd.AddCommand(eventActualAddCmd, eventActualUpdateCmd, eventActualDeleteCmd)
	eventCmd.AddCommand(eventCreateCmd, eventListCmd, eventShowCmd, eventUpdateCmd, eventSubmitCmd,
		eventApproveCmd, eventRejectCmd, eventCancelCmd, eventBudgetCmd, eventActualCmd)
	rootCmd.AddCommand(eventCmd)
}
