package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <steamid | vanity | profile-url>",
	Short: "Dry-run: project the size of a depth-2 crawl",
	Long: `Fetch the seed's friend list and sample up to 50 of its friends to project
how many identities a depth-2 crawl would reach, capped at max-nodes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, dir, err := openEngine(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer dir.Close()

		est, err := e.Estimate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("ESTIMATE " + est.Seed))
		fmt.Printf("  %s\n", field("SEED FRIENDS", est.SeedFriends))
		fmt.Printf("  %s  %s\n", field("SAMPLED", est.Sampled), field("AVG FRIENDS", fmt.Sprintf("%.1f", est.AvgFriends)))
		fmt.Printf("  %s\n", field(fmt.Sprintf("DEPTH-2 NODES (cap %d)", est.MaxNodes), "~"+fmt.Sprint(est.Nodes)))
		logDirectoryCalls(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}
