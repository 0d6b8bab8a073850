package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bondcurve/core"
	"bondcurve/crypto"
	"bondcurve/native/bonding"
	"bondcurve/native/common"
	"bondcurve/observability/logging"
	"bondcurve/storage"
	"bondcurve/storage/audit"
)

var (
	settleSender    string
	settleAmount    string
	settleDenom     string
	settleAffiliate string
	settleOwner     string
)

// openExecutor opens the node's state directory. leveldb holds an exclusive
// lock, so the daemon must be stopped.
func openExecutor(cmd *cobra.Command) (*core.Executor, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.NewLevelDB(cfg.StatePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open state (is bondingd running?): %w", err)
	}
	contract := strings.TrimSpace(cfg.Contract.ContractAddress)
	if contract == "" {
		addr, err := crypto.ContractAddress(crypto.DefaultPrefix, cfg.Contract.Symbol)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		contract = addr.String()
	}
	exec, err := core.NewExecutor(db, contract)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger, _ := logging.SetupWithOptions(logging.Options{Service: "bondingctl", Env: cfg.Environment, Output: cmd.ErrOrStderr()})
	exec.SetLogger(logger)
	if err := exec.SetProtocolFee(cfg.ProtocolFeePermille); err != nil {
		db.Close()
		return nil, nil, err
	}
	closers := []func(){db.Close}
	if dsn := strings.TrimSpace(cfg.AuditDSN); dsn != "" {
		store, err := audit.Open(dsn)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		exec.SetAudit(store)
		closers = append(closers, func() { store.Close() })
	}
	if settleDenom == "" {
		settleDenom = cfg.Contract.ReserveDenom
	}
	return exec, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func printResponse(out io.Writer, resp *bonding.Response) {
	for _, attr := range resp.Attributes {
		fmt.Fprintf(out, "%-16s %s\n", attr.Key, attr.Value)
	}
	for _, tr := range resp.Transfers {
		fmt.Fprintf(out, "transfer         %s %s -> %s\n", tr.Amount.Dec(), tr.Denom, tr.To)
	}
}

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy supply tokens with reserve funds",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := common.ParseAmount(settleAmount)
		if err != nil {
			return fmt.Errorf("--amount: %w", err)
		}
		exec, closeFn, err := openExecutor(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		info := bonding.MessageInfo{
			Sender: settleSender,
			Funds:  []bonding.Coin{{Denom: settleDenom, Amount: amount}},
		}
		resp, err := exec.Buy(cmd.Context(), info, settleAffiliate)
		if err != nil {
			return fmt.Errorf("buy rejected (%s): %w", bonding.Classify(err), err)
		}
		printResponse(cmd.OutOrStdout(), resp)
		return nil
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell",
	Short: "Burn supply tokens back into the curve",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := common.ParseAmount(settleAmount)
		if err != nil {
			return fmt.Errorf("--amount: %w", err)
		}
		exec, closeFn, err := openExecutor(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		info := bonding.MessageInfo{Sender: settleSender}
		var resp *bonding.Response
		if owner := strings.TrimSpace(settleOwner); owner != "" {
			resp, err = exec.SellFrom(cmd.Context(), info, owner, amount)
		} else {
			resp, err = exec.Sell(cmd.Context(), info, amount)
		}
		if err != nil {
			return fmt.Errorf("sell rejected (%s): %w", bonding.Classify(err), err)
		}
		printResponse(cmd.OutOrStdout(), resp)
		return nil
	},
}

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Show the stored curve state",
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, closeFn, err := openExecutor(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		info, err := exec.CurveInfo(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "reserve:        %s %s\n", info.Reserve.Dec(), info.ReserveDenom)
		fmt.Fprintf(out, "supply:         %s\n", info.Supply.Dec())
		fmt.Fprintf(out, "spot:           %s\n", info.SpotPrice.Dec())
		fmt.Fprintf(out, "tax collected:  %s\n", info.TaxCollected.Dec())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{buyCmd, sellCmd} {
		c.Flags().StringVar(&settleSender, "sender", "", "calling address")
		c.Flags().StringVar(&settleAmount, "amount", "", "amount in minor units")
		_ = c.MarkFlagRequired("sender")
		_ = c.MarkFlagRequired("amount")
	}
	buyCmd.Flags().StringVar(&settleDenom, "denom", "", "reserve denomination (default from config)")
	buyCmd.Flags().StringVar(&settleAffiliate, "affiliate", "", "affiliate address credited with the reward")
	sellCmd.Flags().StringVar(&settleOwner, "from", "", "burn from this holder using the sender's allowance")
	rootCmd.AddCommand(buyCmd, sellCmd, curveCmd)
}
