package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cosim/datarecording"
	"github.com/sarchlab/cosim/tracing"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the bridge transactions of a recording.",
	Long: "`report --db cosim_recording_xxx.sqlite3 --kind read` lists the " +
		"transactions that `run --record` stored, oldest first.",
	Run: func(cmd *cobra.Command, _ []string) {
		flags := cmd.Flags()
		dbFile, _ := flags.GetString("db")
		kind, _ := flags.GetString("kind")
		failed, _ := flags.GetBool("failed")
		limit, _ := flags.GetInt("limit")

		if _, err := os.Stat(dbFile); err != nil {
			fatalf("Error: %v", err)
		}

		reader := datarecording.NewReader(dbFile)
		defer reader.Close()

		reader.MapTable(tracing.TransactionTable, tracing.TransactionEntry{})

		params := datarecording.QueryParams{
			OrderBy: "StartNs",
			Limit:   limit,
		}

		switch {
		case kind != "" && failed:
			params.Where = "Kind = ? AND Error != ''"
			params.Args = []any{kind}
		case kind != "":
			params.Where = "Kind = ?"
			params.Args = []any{kind}
		case failed:
			params.Where = "Error != ''"
		}

		entries, total, err := reader.Query(
			context.Background(), tracing.TransactionTable, params)
		if err != nil {
			fatalf("Error: %v", err)
		}

		for _, e := range entries {
			printEntry(e.(*tracing.TransactionEntry))
		}

		status("%d of %d transactions", len(entries), total)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("db", "", "Recording to read")
	reportCmd.Flags().String("kind", "",
		"Only show read, write, advance, reset, or stop")
	reportCmd.Flags().Bool("failed", false, "Only show failed transactions")
	reportCmd.Flags().Int("limit", 0, "Show at most this many")
	_ = reportCmd.MarkFlagRequired("db")
}

func printEntry(e *tracing.TransactionEntry) {
	latency := time.Duration(e.LatencyNs)

	if e.Error != "" {
		fmt.Printf("%.9f %-8s 0x%08X/%d %v error: %s\n",
			e.VirtualTime, e.Kind, e.Address, e.Size, latency, e.Error)

		return
	}

	fmt.Printf("%.9f %-8s 0x%08X/%d 0x%X irq=%d %v\n",
		e.VirtualTime, e.Kind, e.Address, e.Size, e.Value, e.IRQLevel, latency)
}
