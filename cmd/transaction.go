package cmd

import (
	"context"
	"fmt"

	"github.com/simonvc/fundledger/internal/client"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/spf13/cobra"
)

var transactionCmd = &cobra.Command{
	Use:     "transaction",
	Aliases: []string{"txn"},
	Short:   "Post and list ledger transactions",
}

// transaction post
var (
	txnFund     int64
	txnIn       string
	txnOut      string
	txnConcept  string
	txnDate     string
	txnChurch   int64
	txnProvider string
	txnDocument string
)

var transactionPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Post a manual income or expense to a fund",
	Long:  "Post a single ledger movement. Give exactly one of --in or --out, e.g. --in 1500.00",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := ledger.ParseAmount("in", txnIn)
		if err != nil {
			return err
		}
		out, err := ledger.ParseAmount("out", txnOut)
		if err != nil {
			return err
		}
		req := ledger.PostRequest{
			FundID:         txnFund,
			AmountIn:       in,
			AmountOut:      out,
			Concept:        txnConcept,
			Date:           txnDate,
			Provider:       txnProvider,
			DocumentNumber: txnDocument,
		}
		if txnChurch > 0 {
			req.ChurchID = &txnChurch
		}

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		txn, err := c.Post(context.Background(), req)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(txn)
		}
		fmt.Printf("Transaction posted: %s\n", txn.ID)
		printTxnLine(*txn)
		return nil
	},
}

// transaction transfer
var (
	xferFrom   int64
	xferTo     int64
	xferAmount string
	xferDesc   string
	xferDate   string
)

var transactionTransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Move money between two funds",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := ledger.ParseAmount("amount", xferAmount)
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		res, err := c.Transfer(context.Background(), ledger.TransferRequest{
			SourceFundID:      xferFrom,
			DestinationFundID: xferTo,
			Amount:            amount,
			Description:       xferDesc,
			Date:              xferDate,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Printf("Transfer %s\n", res.TransferID)
		printTxnLine(*res.Debit)
		printTxnLine(*res.Credit)
		return nil
	},
}

// transaction list
var txnListQuery client.TxnQuery

var transactionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		txns, err := c.ListTransactions(context.Background(), txnListQuery)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(txns)
		}
		if len(txns) == 0 {
			fmt.Println("No transactions found.")
			return nil
		}
		header("%-10s %-6s %-36s %12s %12s %12s", "DATE", "FUND", "CONCEPT", "IN", "OUT", "BALANCE")
		for _, t := range txns {
			printTxnLine(t)
		}
		return nil
	},
}

var transactionGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get transaction details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		txn, err := c.GetTransaction(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(txn)
	},
}

func printTxnLine(t ledger.Transaction) {
	fmt.Printf("%-10s %-6d %-36s %12s %12s %s\n", t.Date, t.FundID, truncate(t.Concept, 36),
		ledger.FormatAmount(t.AmountIn), ledger.FormatAmount(t.AmountOut), amountText(t.BalanceAfter, 12))
}

func init() {
	pf := transactionPostCmd.Flags()
	pf.Int64Var(&txnFund, "fund", 0, "Fund id")
	pf.StringVar(&txnIn, "in", "", "Amount in")
	pf.StringVar(&txnOut, "out", "", "Amount out")
	pf.StringVar(&txnConcept, "concept", "", "Concept")
	pf.StringVar(&txnDate, "date", "", "Date YYYY-MM-DD (default today)")
	pf.Int64Var(&txnChurch, "for-church", 0, "Church the movement belongs to")
	pf.StringVar(&txnProvider, "provider", "", "Provider or payee")
	pf.StringVar(&txnDocument, "document", "", "Document number")
	transactionPostCmd.MarkFlagRequired("fund")
	transactionPostCmd.MarkFlagRequired("concept")

	tf := transactionTransferCmd.Flags()
	tf.Int64Var(&xferFrom, "from", 0, "Source fund id")
	tf.Int64Var(&xferTo, "to", 0, "Destination fund id")
	tf.StringVar(&xferAmount, "amount", "", "Amount")
	tf.StringVar(&xferDesc, "description", "", "Description")
	tf.StringVar(&xferDate, "date", "", "Date YYYY-MM-DD (default today)")
	transactionTransferCmd.MarkFlagRequired("from")
	transactionTransferCmd.MarkFlagRequired("to")
	transactionTransferCmd.MarkFlagRequired("amount")

	lf := transactionListCmd.Flags()
	lf.Int64Var(&txnListQuery.FundID, "fund", 0, "Filter by fund id")
	lf.Int64Var(&txnListQuery.ChurchID, "for-church", 0, "Filter by church id")
	lf.StringVar(&txnListQuery.EventID, "event", "", "Filter by event id")
	lf.StringVar(&txnListQuery.ReportID, "report", "", "Filter by monthly report id")
	lf.StringVar(&txnListQuery.From, "from", "", "From date YYYY-MM-DD")
	lf.StringVar(&txnListQuery.To, "to", "", "To date YYYY-MM-DD")
	lf.IntVar(&txnListQuery.Limit, "limit", 100, "Maximum rows")

	transactionCmd.AddCommand(transactionPostCmd, transactionTransferCmd, transactionListCmd, transactionGetCmd)
	rootCmd.AddCommand(transactionCmd)
}
