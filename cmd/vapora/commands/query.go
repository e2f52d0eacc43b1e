package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/vapora/pkg/engine/report"
)

var queryCmd = &cobra.Command{
	Use:   "query --where <expr>",
	Short: "Filter a stored run's nodes with a CEL expression",
	Long: `Re-analyse a stored run and print the node rows matching a CEL expression.

Variables: id, label, degree, betweenness, community, depth,
is_seed, is_hub, is_banned, is_public.`,
	Example: `  vapora query --where 'is_hub && is_banned'
  vapora query --run 76561197960287930 --where 'degree > 20 && !is_public' --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("run")
		where, _ := cmd.Flags().GetString("where")
		asJSON, _ := cmd.Flags().GetBool("json")

		e, _, err := openEngine(cmd.Context(), false)
		if err != nil {
			return err
		}
		a, rows, err := e.Query(cmd.Context(), ref, where)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, flagStyle.Render(fmt.Sprintf("%s: %d of %d nodes match", a.Run.Dir(), len(rows), len(a.Tables.Nodes))))
		if asJSON {
			return report.WriteJSON(os.Stdout, rows)
		}
		return report.WriteNodes(os.Stdout, rows)
	},
}

func init() {
	queryCmd.Flags().String("run", "", runRefUsage)
	queryCmd.Flags().String("where", "", "CEL condition over node rows")
	queryCmd.Flags().Bool("json", false, "Print JSON instead of CSV")
	_ = queryCmd.MarkFlagRequired("where")
	rootCmd.AddCommand(queryCmd)
}
