package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bondcurve/storage/audit"
)

var (
	auditDSN    string
	auditAction string
	auditSender string
	auditLimit  int
	auditOut    string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the settlement audit trail",
}

func openAudit() (*audit.Store, error) {
	dsn := strings.TrimSpace(auditDSN)
	if dsn == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		dsn = cfg.AuditDSN
	}
	return audit.Open(dsn)
}

func auditFilter() audit.Filter {
	return audit.Filter{Action: auditAction, Sender: auditSender, Limit: auditLimit}
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent settlements, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAudit()
		if err != nil {
			return err
		}
		defer store.Close()
		records, err := store.List(cmd.Context(), auditFilter())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, rec := range records {
			fmt.Fprintf(out, "%s  %-20s %-45s minted=%s burned=%s reserve=%s supply=%s\n",
				rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), rec.Action, rec.Sender,
				orDash(rec.Minted), orDash(rec.Burned), orDash(rec.Reserve), orDash(rec.Supply))
		}
		return nil
	},
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export settlements to a parquet file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(auditOut) == "" {
			return fmt.Errorf("--out is required")
		}
		store, err := openAudit()
		if err != nil {
			return err
		}
		defer store.Close()
		n, err := store.ExportParquet(cmd.Context(), auditOut, auditFilter())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d settlements to %s\n", n, auditOut)
		return nil
	},
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func init() {
	auditCmd.PersistentFlags().StringVar(&auditDSN, "dsn", "", "audit database DSN (default from config)")
	auditCmd.PersistentFlags().StringVar(&auditAction, "action", "", "only settlements with this action")
	auditCmd.PersistentFlags().StringVar(&auditSender, "sender", "", "only settlements sent by this address")
	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 0, "maximum number of settlements (0 for all)")
	auditExportCmd.Flags().StringVar(&auditOut, "out", "", "parquet output path")
	auditCmd.AddCommand(auditListCmd, auditExportCmd)
	rootCmd.AddCommand(auditCmd)
}
