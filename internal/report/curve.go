package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
)

const (
	chartHeight = "520px"
	chartWidth  = "900px"
)

// CurveReport is a sampled banding S-curve.
type CurveReport struct {
	SignatureLength int         `json:"signature_length" yaml:"signature_length"`
	BandRows        int         `json:"band_rows"        yaml:"band_rows"`
	Bands           int         `json:"bands"            yaml:"bands"`
	Threshold       float64     `json:"threshold"        yaml:"threshold"`
	Points          []lsh.Point `json:"points"           yaml:"points"`
}

// NewCurveReport samples the S-curve for k values banded r rows at a time.
func NewCurveReport(k, r, steps int) CurveReport {
	b := lsh.NumBands(k, r)

	return CurveReport{
		SignatureLength: k,
		BandRows:        r,
		Bands:           b,
		Threshold:       lsh.Threshold(r, b),
		Points:          lsh.Curve(r, b, steps),
	}
}

// Curve renders the S-curve samples.
func (w *Writer) Curve(rep CurveReport) error {
	if done, err := w.encode(rep); done {
		return err
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Similarity", "P(candidate)", "P(miss)"})

	for _, p := range rep.Points {
		prob := formatScore(p.Probability)
		if p.Similarity >= rep.Threshold {
			prob = w.match.Sprint(prob)
		}

		tbl.AppendRow(table.Row{fmt.Sprintf("%.2f", p.Similarity), prob, formatScore(1 - p.Probability)})
	}

	title := fmt.Sprintf("S-curve for k=%d, r=%d, b=%d (threshold ~%.3f)",
		rep.SignatureLength, rep.BandRows, rep.Bands, rep.Threshold)

	return w.render(title, tbl)
}

// CurveChart writes the S-curve as a standalone HTML line chart.
func CurveChart(out io.Writer, rep CurveReport) error {
	labels := make([]string, len(rep.Points))
	data := make([]opts.LineData, len(rep.Points))

	for i, p := range rep.Points {
		labels[i] = fmt.Sprintf("%.2f", p.Similarity)
		data[i] = opts.LineData{Value: p.Probability}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "neardup S-curve",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "LSH candidate probability",
			Subtitle: fmt.Sprintf("k=%d, %d bands of %d rows, threshold ~%.3f", rep.SignatureLength, rep.Bands, rep.BandRows, rep.Threshold),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Jaccard similarity"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "P(candidate)"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("1-(1-s^r)^b", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
	)

	if err := line.Render(out); err != nil {
		return fmt.Errorf("report: render chart: %w", err)
	}

	return nil
}
