package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
)

// EvalReport is a precision/recall sweep for one document.
type EvalReport struct {
	ID     uint32                `json:"id"             yaml:"id"`
	Path   string                `json:"path,omitempty" yaml:"path,omitempty"`
	Metric rank.Metric           `json:"metric"         yaml:"metric"`
	Points []detector.Evaluation `json:"points"         yaml:"points"`
}

// Evaluation renders an evaluation sweep. Undefined ratios print as n/a.
func (w *Writer) Evaluation(rep EvalReport) error {
	if done, err := w.encode(rep); done {
		return err
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Threshold", "Retrieved", "Precision", "Recall"})

	for _, ev := range rep.Points {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("%.2f", ev.Threshold),
			ev.Retrieved,
			w.ratio(ev.Precision, ev.PrecisionDefined),
			w.ratio(ev.Recall, ev.RecallDefined),
		})
	}

	title := fmt.Sprintf("Evaluation of document %d (%s)", rep.ID, rep.Metric)
	if rep.Path != "" {
		title = fmt.Sprintf("Evaluation of %s [%d] (%s)", rep.Path, rep.ID, rep.Metric)
	}

	return w.render(title, tbl)
}

func (w *Writer) ratio(v float64, defined bool) string {
	if !defined {
		return w.dim.Sprint("n/a")
	}

	return formatScore(v)
}
