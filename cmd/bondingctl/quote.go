package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bondcurve/native/bonding"
	"bondcurve/native/bonding/curves"
	"bondcurve/native/common"
)

var (
	quoteSupply  string
	quotePayment string
	quoteFee     int64
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a buy against the configured curve without touching state",
	Long: `quote evaluates the configured curve offline. The reserve is derived
from --supply, the protocol fee is withheld from --payment and the minted
amount is reported in supply minor units.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ct, err := cfg.Contract.Curve.CurveType()
		if err != nil {
			return err
		}
		places := curves.NewDecimalPlaces(cfg.Contract.Decimals, cfg.Contract.ReserveDecimals)
		curve, err := curves.Resolve(ct, places)
		if err != nil {
			return err
		}
		supply, err := common.ParseAmount(quoteSupply)
		if err != nil {
			return fmt.Errorf("--supply: %w", err)
		}
		payment, err := common.ParseAmount(quotePayment)
		if err != nil {
			return fmt.Errorf("--payment: %w", err)
		}
		fee := cfg.ProtocolFeePermille
		if quoteFee >= 0 {
			fee = uint64(quoteFee)
		}

		reserve, err := curve.Reserve(supply)
		if err != nil {
			return err
		}
		spot, err := curve.SpotPrice(supply)
		if err != nil {
			return err
		}
		minted, err := bonding.QuoteMint(curve, reserve, supply, payment, fee)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "curve:     %s\n", ct.Kind)
		fmt.Fprintf(out, "supply:    %s\n", supply.Dec())
		fmt.Fprintf(out, "reserve:   %s %s\n", reserve.Dec(), cfg.Contract.ReserveDenom)
		fmt.Fprintf(out, "spot:      %s\n", spot.Dec())
		fmt.Fprintf(out, "fee:       %d permille\n", fee)
		fmt.Fprintf(out, "minted:    %s\n", minted.Dec())
		return nil
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteSupply, "supply", "0", "current supply in minor units")
	quoteCmd.Flags().StringVar(&quotePayment, "payment", "", "reserve payment in minor units")
	quoteCmd.Flags().Int64Var(&quoteFee, "fee", -1, "protocol fee in permille (default from config)")
	_ = quoteCmd.MarkFlagRequired("payment")
	rootCmd.AddCommand(quoteCmd)
}
