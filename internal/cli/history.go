package cli

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/lu-zhengda/appsweep/internal/history"
	"github.com/lu-zhengda/appsweep/internal/utils"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past removals and the space they freed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats := history.New(historyPath()).Stats()

		if jsonFlag {
			return printJSON(buildHistoryJSON(stats))
		}
		printHistory(stats)
		return nil
	},
}

func printHistory(stats history.Stats) {
	fmt.Println("appsweep -- Removal History")
	fmt.Println()

	if stats.TotalRemovals == 0 {
		fmt.Println("  No removals recorded yet. Run 'appsweep remove <app>' to get started.")
		fmt.Println()
		return
	}

	fmt.Printf("  Total freed all-time:  %s\n", utils.FormatSize(stats.TotalFreed))
	fmt.Printf("  Total removals:        %d\n", stats.TotalRemovals)
	if stats.TotalFailed > 0 {
		fmt.Printf("  Paths that failed:     %d\n", stats.TotalFailed)
	}

	if len(stats.ByMethod) > 0 {
		fmt.Println()
		fmt.Println("  By Method:")

		methods := make([]string, 0, len(stats.ByMethod))
		for m := range stats.ByMethod {
			methods = append(methods, m)
		}
		sort.Slice(methods, func(i, j int) bool {
			return stats.ByMethod[methods[i]].BytesFreed > stats.ByMethod[methods[j]].BytesFreed
		})
		for _, m := range methods {
			ms := stats.ByMethod[m]
			fmt.Printf("    %-22s %10s  (%d %s)\n", m, utils.FormatSize(ms.BytesFreed), ms.Removals, plural(ms.Removals, "removal", "removals"))
		}
	}

	fmt.Println()
	fmt.Println("  Recent:")
	for _, e := range stats.Recent {
		fmt.Printf("    %-16s %-24s %3d %-5s  %10s\n",
			humanize.Time(e.Timestamp),
			e.App,
			e.Items,
			plural(e.Items, "item", "items"),
			utils.FormatSize(e.BytesFreed))
	}
	fmt.Println()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
