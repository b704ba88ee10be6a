package commands

import (
	"fmt"

	"github.com/creachadair/atomicfile"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
)

// defaultCurveSteps is the number of similarity samples on the curve.
const defaultCurveSteps = 20

// CurveCommand holds the flags of the curve command.
type CurveCommand struct {
	app *app

	k      int
	rows   int
	steps  int
	target float64
	html   string
	format string
}

func newCurveCommand(a *app) *cobra.Command {
	cc := &CurveCommand{app: a}

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Show the LSH candidate probability curve",
		Long: `Print the probability that two documents become candidates as a function
of their Jaccard similarity, for k signature rows banded r rows at a time.

With --target the rows per band are chosen so that the threshold estimate
lands closest to the target similarity.`,
		Args: cobra.NoArgs,
		RunE: cc.Run,
	}

	flags := cmd.Flags()
	flags.IntVar(&cc.k, "k", 0, "signature length (default from config)")
	flags.IntVarP(&cc.rows, "rows", "r", 0, "rows per band (default from config)")
	flags.IntVar(&cc.steps, "steps", defaultCurveSteps, "number of similarity samples")
	flags.Float64Var(&cc.target, "target", 0, "choose rows per band for this threshold")
	flags.StringVar(&cc.html, "html", "", "also write an interactive chart to this HTML file")
	flags.StringVarP(&cc.format, "format", "f", string(report.FormatTable), "output format: table, json, yaml")

	return cmd
}

// Run executes the curve command.
func (cc *CurveCommand) Run(cmd *cobra.Command, _ []string) error {
	k := cc.app.cfg.MinHash.SignatureLength
	if cmd.Flags().Changed("k") {
		k = cc.k
	}

	rows := cc.app.cfg.LSH.BandRows
	if cmd.Flags().Changed("rows") {
		rows = cc.rows
	}

	if cmd.Flags().Changed("target") {
		best, err := lsh.OptimalRows(k, cc.target)
		if err != nil {
			return err
		}

		rows = best
	}

	if k < 1 || rows < 1 || rows > k || cc.steps < 1 {
		return fmt.Errorf("%w: k=%d rows=%d steps=%d", lsh.ErrInvalidParameter, k, rows, cc.steps)
	}

	w, err := cc.app.writer(cmd, cc.format)
	if err != nil {
		return err
	}

	rep := report.NewCurveReport(k, rows, cc.steps)

	if cc.html != "" {
		if err := writeChart(cc.html, rep); err != nil {
			return err
		}

		cc.app.logger.Info("curve chart written", "path", cc.html)
	}

	return w.Curve(rep)
}

func writeChart(path string, rep report.CurveReport) error {
	f, err := atomicfile.New(path, 0o644)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	if err := report.CurveChart(f, rep); err != nil {
		f.Cancel()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	return nil
}
