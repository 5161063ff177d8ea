package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xtrntr/sharktank/internal/desk"
	"github.com/xtrntr/sharktank/internal/models"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials with the transaction service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as player %d\n", playerID)
		return nil
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show cash balance and holdings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, desk.Request{Type: models.TransactionDisplayAccount})
	},
}

var stocksCmd = &cobra.Command{
	Use:   "stocks",
	Short: "List tradable stocks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, desk.Request{Type: models.TransactionGetStocks})
	},
}

func tradeCmd(t models.TransactionType) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s SYMBOL QUANTITY", t),
		Short: fmt.Sprintf("Place a %s order", t),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty <= 0 {
				return errors.New("Quantity must be a positive number.")
			}
			return run(cmd, desk.Request{
				Type:     t,
				Symbol:   args[0],
				Quantity: qty,
				Simple:   true,
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(loginCmd, accountCmd, stocksCmd,
		tradeCmd(models.TransactionBuy), tradeCmd(models.TransactionSell))
}
