package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fentz26/stratowatch/internal/models"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyGroup string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print instance state history",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 3600, "Seconds of history to show (0 for all)")
	historyCmd.Flags().StringVar(&historyGroup, "group", "", "Only show this compute group")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print raw JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	points, err := newAPIClient().StateHistory(context.Background(), limitFlag(historyLimit), historyGroup)
	if err != nil {
		return err
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	}

	if len(points) == 0 {
		fmt.Println("No state history.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tAGE\tRUNNING\tPENDING\tFAILED\tTOTAL")
	for _, p := range points {
		t := models.FromUnixMillis(p.Time).Local()
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			t.Format("2006-01-02 15:04:05"),
			humanize.Time(t),
			p.Running, p.Pending, p.Failed,
			p.Running+p.Pending+p.Failed)
	}
	return w.Flush()
}
