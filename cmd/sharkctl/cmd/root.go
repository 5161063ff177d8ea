package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xtrntr/sharktank/internal/circuitbreaker"
	"github.com/xtrntr/sharktank/internal/config"
	"github.com/xtrntr/sharktank/internal/desk"
	"github.com/xtrntr/sharktank/internal/events"
	"github.com/xtrntr/sharktank/internal/journal"
	"github.com/xtrntr/sharktank/internal/logging"
	"github.com/xtrntr/sharktank/internal/view"
	"github.com/xtrntr/sharktank/internal/webhook"
)

var (
	webhookURL string
	playerID   int
	password   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sharkctl",
	Short: "Command-line desk for the SHARK TANK trading game",
	Long: `sharkctl talks to the SHARK TANK transaction service from a terminal.

It can:
  - verify a player's credentials
  - show the player's cash balance and holdings
  - list tradable stocks
  - place buy and sell orders

Credentials come from --player/--password or SHARK_PLAYER_ID/SHARK_PASSWORD.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&webhookURL, "webhook-url", "", "transaction service URL (default from WEBHOOK_URL)")
	rootCmd.PersistentFlags().IntVar(&playerID, "player", envInt("SHARK_PLAYER_ID"), "player ID")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("SHARK_PASSWORD"), "player password")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}

// session is a logged-in CLI invocation
type session struct {
	desk  *desk.Desk
	close func()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if webhookURL != "" {
		cfg.WebhookURL = webhookURL
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	breaker := circuitbreaker.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerReset, logger)
	client := webhook.NewClient(cfg.WebhookURL, cfg.WebhookTimeout, breaker, logger)

	j, err := journal.Open(ctx, cfg.JournalDriver, cfg.JournalDSN)
	if err != nil {
		return nil, err
	}
	pub := events.New(cfg.Brokers(), cfg.KafkaTopic, logger)

	if playerID == 0 && password == "" {
		j.Close(ctx)
		pub.Close()
		return nil, errors.New("credentials required: use --player and --password")
	}
	if err := client.Login(ctx, playerID, password); err != nil {
		j.Close(ctx)
		pub.Close()
		return nil, err
	}

	return &session{
		desk: desk.NewDesk(client, j, pub, logger),
		close: func() {
			pub.Close()
			j.Close(context.Background())
			logger.Sync()
		},
	}, nil
}

// run logs in, executes req for the player and prints the result
func run(cmd *cobra.Command, req desk.Request) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	req.PlayerID = playerID
	req.Password = password
	res, err := s.desk.Execute(ctx, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res.View.Kind != view.KindMessage && res.View.Message != "" {
		fmt.Fprintln(out, res.View.Message)
	}
	return view.WriteText(out, res.View)
}
