package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/vapora/pkg/engine"
	"github.com/DrSkyle/vapora/pkg/engine/crawler"
	"github.com/DrSkyle/vapora/pkg/engine/report"
	"github.com/DrSkyle/vapora/pkg/logging"
	"github.com/DrSkyle/vapora/pkg/tui"
)

var headless bool

var scanCmd = &cobra.Command{
	Use:   "scan <steamid | vanity | profile-url>",
	Short: "Crawl and analyse the graph around a profile",
	Long: `Resolve the target, crawl its friend graph breadth-first within the
configured depth and node budget, then write the checkpoint, Gephi tables,
probable associates and run summary to a new run directory.

Interrupting the crawl (ctrl+c) writes a checkpoint that 'vapora resume' picks up.`,
	Example: `  vapora scan 76561197960287930
  vapora scan https://steamcommunity.com/id/gabelogannewell --preset inner-circle
  vapora scan mock --mock --groups`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0], func(ctx context.Context, e *engine.Engine) (*report.Summary, error) {
			return e.Run(ctx, args[0])
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the most recent run from its checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, _ := cmd.Flags().GetString("seed")
		label := seed
		if label == "" {
			label = "latest run"
		}
		return runPipeline(cmd, label, func(ctx context.Context, e *engine.Engine) (*report.Summary, error) {
			return e.ResumeLast(ctx, seed)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, resumeCmd} {
		c.Flags().BoolVar(&headless, "no-tui", false, "Plain log output instead of the progress view")
		rootCmd.AddCommand(c)
	}
	resumeCmd.Flags().String("seed", "", "Resume the newest run of this seed instead of the newest overall")
}

type pipelineFunc func(ctx context.Context, e *engine.Engine) (*report.Summary, error)

func runPipeline(cmd *cobra.Command, label string, fn pipelineFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	useTUI := !headless && interactive()
	runLogger := logger
	if useTUI {
		// keep the progress view clean; warnings still surface afterwards
		runLogger = logging.New(logging.Config{Level: "error", Format: cfg.LogFormat})
	}

	var summary *report.Summary
	var err error

	if useTUI {
		summary, err = tui.Run(ctx, label, cfg.MaxNodes, func(ctx context.Context, onProgress func(crawler.Progress)) (*report.Summary, error) {
			e, dir, err := openEngine(ctx, true, engine.WithLogger(runLogger), engine.WithProgress(onProgress))
			if err != nil {
				return nil, err
			}
			defer dir.Close()
			return fn(ctx, e)
		})
	} else {
		e, dir, oerr := openEngine(ctx, true, engine.WithProgress(logProgress()))
		if oerr != nil {
			return oerr
		}
		defer dir.Close()
		summary, err = fn(ctx, e)
	}

	logDirectoryCalls(context.Background())
	if err != nil {
		return err
	}
	if !useTUI {
		printSummary(summary)
	}
	return nil
}

// logProgress reports crawl progress at debug level, at most every two
// seconds.
func logProgress() func(crawler.Progress) {
	var last time.Time
	return func(p crawler.Progress) {
		if p.Phase == crawler.PhaseCrawl && time.Since(last) < 2*time.Second {
			return
		}
		last = time.Now()
		logger.Debug("progress", "phase", p.Phase, "nodes", p.Nodes, "visited", p.Visited, "queue", p.Queue, "depth", p.Depth)
	}
}

func printSummary(s *report.Summary) {
	fmt.Println(titleStyle.Render("RUN " + s.RunID))
	state := "complete"
	if !s.Complete {
		state = warnStyle.Render(fmt.Sprintf("partial (%d queued)", s.QueueRemaining))
	}
	fmt.Printf("  %s  %s  %s\n", field("SEED", s.SeedLabel+" ("+s.Seed+")"), field("STATE", state), field("TOOK", s.Duration().Truncate(time.Second)))
	g := s.Graph
	fmt.Printf("  %s  %s  %s  %s  %s\n",
		field("NODES", g.Nodes), field("EDGES", g.Edges), field("COMPONENTS", g.Components),
		field("COMMUNITIES", g.Communities), field("MODULARITY", fmt.Sprintf("%.3f", g.Modularity)))
	if len(g.Hubs) > 0 {
		fmt.Printf("  %s\n", field("HUBS", strings.Join(g.Hubs, ", ")))
	}
	if s.Flagged > 0 {
		fmt.Printf("  %s\n", field("FLAGGED", s.Flagged))
	}
	if len(s.TopCandidates) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("PROBABLE ASSOCIATES"))
		for _, c := range s.TopCandidates {
			fmt.Printf("  %-20s score %-8.4f mutual %-4d jaccard %.4f groups %d\n", c.ID, c.Score, c.Mutual, c.Jaccard, c.SharedGroups)
		}
	}
	fmt.Println()
	fmt.Println(flagStyle.Render("  written to " + s.Location))
}
