// Package report renders analysis results as the CSV tables consumed by
// Gephi and spreadsheets, plus the JSON run summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/DrSkyle/vapora/pkg/graph"
	"github.com/DrSkyle/vapora/pkg/scorer"
)

// Column orders are part of the export contract.
var (
	NodeHeader      = []string{"Id", "Label", "degree", "betweenness", "modularity_class", "is_seed", "is_hub", "is_banned", "is_public"}
	EdgeHeader      = []string{"Source", "Target", "Kind"}
	CandidateHeader = []string{"candidate_steamid", "score", "mutual_count", "jaccard_with_seed", "shared_groups", "shared_games"}
	FlaggedHeader   = []string{"rule_id", "Id", "Label", "degree", "betweenness", "modularity_class", "is_hub", "is_banned", "is_public", "depth"}
)

// FlaggedRow pairs a node with the rule it matched.
type FlaggedRow struct {
	Rule string
	Node graph.NodeRow
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round4(v float64) string {
	return formatFloat(math.Round(v*1e4) / 1e4)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNodes writes the Gephi node table.
func WriteNodes(w io.Writer, rows []graph.NodeRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.ID,
			r.Label,
			strconv.Itoa(r.Degree),
			formatFloat(r.Betweenness),
			strconv.Itoa(r.Community),
			strconv.FormatBool(r.IsSeed),
			strconv.FormatBool(r.IsHub),
			strconv.FormatBool(r.IsBanned),
			strconv.FormatBool(r.IsPublic),
		}
	}
	return writeAll(w, NodeHeader, records)
}

// WriteEdges writes the Gephi edge table.
func WriteEdges(w io.Writer, rows []graph.EdgeRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{r.Source, r.Target, string(r.Kind)}
	}
	return writeAll(w, EdgeHeader, records)
}

// WriteCandidates writes the ranked associate table. Score and Jaccard are
// rounded to four places.
func WriteCandidates(w io.Writer, cs []scorer.Candidate) error {
	records := make([][]string, len(cs))
	for i, c := range cs {
		records[i] = []string{
			c.ID,
			round4(c.Score),
			strconv.Itoa(c.Mutual),
			round4(c.Jaccard),
			strconv.Itoa(c.SharedGroups),
			strconv.Itoa(c.SharedGames),
		}
	}
	return writeAll(w, CandidateHeader, records)
}

// WriteFlagged writes nodes matched by rules.
func WriteFlagged(w io.Writer, rows []FlaggedRow) error {
	records := make([][]string, len(rows))
	for i, f := range rows {
		r := f.Node
		records[i] = []string{
			f.Rule,
			r.ID,
			r.Label,
			strconv.Itoa(r.Degree),
			formatFloat(r.Betweenness),
			strconv.Itoa(r.Community),
			strconv.FormatBool(r.IsHub),
			strconv.FormatBool(r.IsBanned),
			strconv.FormatBool(r.IsPublic),
			strconv.Itoa(r.Depth),
		}
	}
	return writeAll(w, FlaggedHeader, records)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
