package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
)

// PathFunc resolves a document id to its source path.
type PathFunc func(id uint32) (string, bool)

// Hit is one ranked document.
type Hit struct {
	ID    uint32  `json:"id"             yaml:"id"`
	Path  string  `json:"path,omitempty" yaml:"path,omitempty"`
	Score float64 `json:"score"          yaml:"score"`
	Match bool    `json:"match"          yaml:"match"`
}

// QueryReport is the answer to one similarity query.
type QueryReport struct {
	Query     string      `json:"query"     yaml:"query"`
	Metric    rank.Metric `json:"metric"    yaml:"metric"`
	Threshold float64     `json:"threshold" yaml:"threshold"`
	Hits      []Hit       `json:"hits"      yaml:"hits"`
}

// NewQueryReport labels results with paths and threshold matches. With
// onlyMatches set, hits that miss the threshold are dropped.
func NewQueryReport(query string, metric rank.Metric, threshold float64, results []rank.Result, paths PathFunc, onlyMatches bool) QueryReport {
	hits := make([]Hit, 0, len(results))

	for _, r := range results {
		match := metric.Meets(r.Score, threshold)
		if onlyMatches && !match {
			continue
		}

		hit := Hit{ID: r.ID, Score: r.Score, Match: match}
		if paths != nil {
			hit.Path, _ = paths(r.ID)
		}

		hits = append(hits, hit)
	}

	return QueryReport{Query: query, Metric: metric, Threshold: threshold, Hits: hits}
}

// Query renders a query report.
func (w *Writer) Query(rep QueryReport) error {
	if done, err := w.encode(rep); done {
		return err
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "ID", "Path", rep.Metric.String()})

	for i, hit := range rep.Hits {
		score := formatScore(hit.Score)
		if hit.Match {
			score = w.match.Sprint(score)
		} else {
			score = w.dim.Sprint(score)
		}

		tbl.AppendRow(table.Row{i + 1, hit.ID, hit.Path, score})
	}

	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d candidates", len(rep.Hits)), ""})

	return w.render(fmt.Sprintf("Query %s (%s, threshold %.2f)", rep.Query, rep.Metric, rep.Threshold), tbl)
}

// PairRow is one near-duplicate pair.
type PairRow struct {
	A     uint32  `json:"a"                yaml:"a"`
	PathA string  `json:"path_a,omitempty" yaml:"path_a,omitempty"`
	B     uint32  `json:"b"                yaml:"b"`
	PathB string  `json:"path_b,omitempty" yaml:"path_b,omitempty"`
	Score float64 `json:"score"            yaml:"score"`
}

// PairsReport lists every candidate pair meeting a threshold.
type PairsReport struct {
	Metric    rank.Metric `json:"metric"    yaml:"metric"`
	Threshold float64     `json:"threshold" yaml:"threshold"`
	Pairs     []PairRow   `json:"pairs"     yaml:"pairs"`
}

// NewPairsReport labels pairs with their paths.
func NewPairsReport(metric rank.Metric, threshold float64, pairs []detector.Pair, paths PathFunc) PairsReport {
	rows := make([]PairRow, 0, len(pairs))

	for _, p := range pairs {
		row := PairRow{A: p.A, B: p.B, Score: p.Score}
		if paths != nil {
			row.PathA, _ = paths(p.A)
			row.PathB, _ = paths(p.B)
		}

		rows = append(rows, row)
	}

	return PairsReport{Metric: metric, Threshold: threshold, Pairs: rows}
}

// Pairs renders a pairs report.
func (w *Writer) Pairs(rep PairsReport) error {
	if done, err := w.encode(rep); done {
		return err
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"A", "Path A", "B", "Path B", rep.Metric.String()})

	for _, p := range rep.Pairs {
		tbl.AppendRow(table.Row{p.A, p.PathA, p.B, p.PathB, w.match.Sprint(formatScore(p.Score))})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d pairs", len(rep.Pairs)), "", "", ""})

	return w.render(fmt.Sprintf("Pairs (%s, threshold %.2f)", rep.Metric, rep.Threshold), tbl)
}
