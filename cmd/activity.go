package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/simonvc/fundledger/internal/client"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/simonvc/fundledger/internal/server"
	"github.com/spf13/cobra"
)

var (
	activityQuery client.ActivityQuery
	activitySince time.Duration
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent postings and event transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if activitySince > 0 {
			activityQuery.Since = time.Now().Add(-activitySince)
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := c.Activity(context.Background(), activityQuery)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(list)
		}
		for _, a := range list {
			amount := ""
			if a.Amount != nil {
				amount = ledger.FormatAmount(*a.Amount)
			}
			fmt.Printf("%s %-10s %-20s %-50s %12s\n", a.At.Format("2006-01-02 15:04"), a.Kind, truncate(a.Actor, 20), truncate(a.Summary, 50), amount)
		}
		return nil
	},
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for --as, --role and --church",
	Long:  "Sign a token with the configured auth.jwt_secret. The server must run with the same secret and issuer.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is not configured")
		}
		a := cliActor()
		if a.ID == "" {
			return errors.New("--as is required")
		}
		if !ledger.ValidRole(a.Role) {
			return fmt.Errorf("invalid role %q", a.Role)
		}
		tok, err := server.IssueToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, a, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	af := activityCmd.Flags()
	af.Int64Var(&activityQuery.FundID, "fund", 0, "Filter by fund id")
	af.Int64Var(&activityQuery.ChurchID, "for-church", 0, "Filter by church id")
	af.StringVar(&activityQuery.EventID, "event", "", "Filter by event id")
	af.StringVar(&activityQuery.ActorID, "actor", "", "Filter by actor id")
	af.DurationVar(&activitySince, "since", 0, "Only entries newer than this, e.g. 24h")
	af.IntVar(&activityQuery.Limit, "limit", 50, "Maximum rows")

	tokenCmd.Flags().String("jwt-secret", "", "HS256 secret (default auth.jwt_secret)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")

	rootCmd.AddCommand(activityCmd, tokenCmd)
}
