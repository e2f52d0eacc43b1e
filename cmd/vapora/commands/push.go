package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DrSkyle/vapora/pkg/sink"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Merge a stored run into Neo4j",
	Long: `Re-analyse a stored run and MERGE its identities (with degree, betweenness,
community and flags) and its FRIEND / SHARES_GROUP relationships into Neo4j.
Pushing the same run twice is idempotent.

The password is read from NEO4J_PASSWORD or neo4j.password in the config file.`,
	Example: `  vapora push --neo4j-uri neo4j://localhost:7687 --neo4j-user neo4j
  vapora push --run 76561197960287930/20260301_120000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("run")

		e, _, err := openEngine(cmd.Context(), false)
		if err != nil {
			return err
		}

		connectCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		client, err := sink.NewNeo4jClient(connectCtx, cfg.Neo4j)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())

		a, stats, err := e.Push(cmd.Context(), ref, client)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("PUSHED " + a.Run.Dir()))
		fmt.Printf("  %s  %s  %s\n", field("NODES", stats.Nodes), field("EDGES", stats.Edges), field("STATEMENTS", stats.Statements))
		return nil
	},
}

func init() {
	f := pushCmd.Flags()
	f.String("run", "", runRefUsage)
	f.String("neo4j-uri", "", "Bolt URI, e.g. neo4j://localhost:7687")
	f.String("neo4j-user", "", "Neo4j user")
	f.String("neo4j-database", "", "Neo4j database (default: server default)")
	f.Int("neo4j-max-conn", 0, "Connection pool size")
	_ = viper.BindPFlag("neo4j.uri", f.Lookup("neo4j-uri"))
	_ = viper.BindPFlag("neo4j.username", f.Lookup("neo4j-user"))
	_ = viper.BindPFlag("neo4j.database", f.Lookup("neo4j-database"))
	_ = viper.BindPFlag("neo4j.max_connections", f.Lookup("neo4j-max-conn"))
	rootCmd.AddCommand(pushCmd)
}
