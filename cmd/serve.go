package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/simonvc/fundledger/internal/events/kafka"
	"github.com/simonvc/fundledger/internal/server"
	"github.com/simonvc/fundledger/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := cfg.Log.NewLogger(os.Stderr)

		opts := []store.Option{store.WithLogger(logger)}
		if len(cfg.Kafka.Brokers) > 0 {
			pub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			defer pub.Close()
			opts = append(opts, store.WithPublisher(pub))
			logger.Info("publishing ledger events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		}

		st, err := store.Open(cfg.Database.DSN, opts...)
		if err != nil {
			return err
		}
		defer st.Close()

		srvOpts := []server.Option{server.WithLogger(logger)}
		if cfg.Auth.JWTSecret != "" {
			srvOpts = append(srvOpts, server.WithJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
		} else {
			logger.Warn("no auth.jwt_secret configured, trusting X-Actor-* gateway headers")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(st, cfg.Server.Addr, srvOpts...)
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8888", "Listen address")
	serveCmd.Flags().String("jwt-secret", "", "HS256 secret for bearer tokens")
	rootCmd.AddCommand(serveCmd)
}
