package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs [seed]",
	Short: "List stored runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, _, err := openEngine(cmd.Context(), false)
		if err != nil {
			return err
		}
		seed := ""
		if len(args) == 1 {
			seed = args[0]
		}
		runs, err := e.ListRuns(cmd.Context(), seed)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println(warnStyle.Render("No runs under " + e.Store().Location("")))
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SEED\tSTAMP\tSTATE\tNODES\tEDGES")
		for _, r := range runs {
			state, nodes, edges := "interrupted", "-", "-"
			if s, err := e.LoadSummary(cmd.Context(), r); err == nil {
				state = "complete"
				if !s.Complete {
					state = "partial"
				}
				nodes, edges = fmt.Sprint(s.Graph.Nodes), fmt.Sprint(s.Graph.Edges)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Seed, r.Stamp, state, nodes, edges)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

// runRefUsage documents the --run flag shared by query and push.
const runRefUsage = "Run to use: <seed>/<stamp>, a seed for its newest run, or empty for the newest overall"

