package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/detector"
)

// Default evaluation sweep.
const (
	defaultEvalFrom = 0.1
	defaultEvalTo   = 0.9
	defaultEvalStep = 0.1

	// sweepEpsilon absorbs float drift when stepping to the upper bound.
	sweepEpsilon = 1e-9
)

// EvalCommand holds the flags of the eval command.
type EvalCommand struct {
	app *app
	rankFlags

	from float64
	to   float64
	step float64
}

func newEvalCommand(a *app) *cobra.Command {
	ec := &EvalCommand{app: a}

	cmd := &cobra.Command{
		Use:   "eval <doc-id|path>",
		Short: "Measure precision and recall of a query over thresholds",
		Long: `Compare the LSH answer for a document with an exhaustive ranking of the
whole model at each threshold of a sweep. Precision is undefined when nothing
is retrieved; recall is undefined when nothing in the corpus meets the
threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: ec.Run,
	}

	ec.register(cmd)

	flags := cmd.Flags()
	flags.Float64Var(&ec.from, "from", defaultEvalFrom, "first threshold of the sweep")
	flags.Float64Var(&ec.to, "to", defaultEvalTo, "last threshold of the sweep")
	flags.Float64Var(&ec.step, "step", defaultEvalStep, "threshold increment")

	return cmd
}

// thresholds lists the sweep points, or just --threshold when it is given.
func (ec *EvalCommand) thresholds(cmd *cobra.Command) ([]float64, error) {
	if cmd.Flags().Changed("threshold") {
		return []float64{ec.threshold}, nil
	}

	if ec.step <= 0 || ec.to < ec.from {
		return nil, ErrInvalidRange
	}

	var out []float64

	for i := 0; ; i++ {
		t := ec.from + float64(i)*ec.step
		if t > ec.to+sweepEpsilon {
			break
		}

		out = append(out, t)
	}

	return out, nil
}

// Run executes the eval command.
func (ec *EvalCommand) Run(cmd *cobra.Command, args []string) error {
	thresholds, err := ec.thresholds(cmd)
	if err != nil {
		return err
	}

	m, err := ec.app.loadModel()
	if err != nil {
		return err
	}

	metric, _, err := ec.resolve(cmd, ec.app, m)
	if err != nil {
		return err
	}

	w, err := ec.app.writer(cmd, ec.format)
	if err != nil {
		return err
	}

	id, err := resolveDocument(m, args[0])
	if err != nil {
		return err
	}

	points := make([]detector.Evaluation, 0, len(thresholds))

	for _, t := range thresholds {
		ev, err := m.Evaluate(cmd.Context(), t, id, metric)
		if err != nil {
			return err
		}

		points = append(points, ev)
	}

	path, _ := m.Path(id)

	return w.Evaluation(report.EvalReport{ID: id, Path: path, Metric: metric, Points: points})
}
