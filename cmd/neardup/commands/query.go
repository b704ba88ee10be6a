package commands

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
)

var (
	// ErrQueryTarget indicates query got neither or both of a document and --file.
	ErrQueryTarget = errors.New("give exactly one of a document id/path or --file")
	// ErrInvalidThreshold indicates a NaN or infinite --threshold.
	ErrInvalidThreshold = errors.New("threshold must be a finite number")
)

// rankFlags are the ranking flags shared by query, pairs and eval.
type rankFlags struct {
	metric    string
	threshold float64
	format    string
}

func (rf *rankFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&rf.metric, "metric", "m", "", "similarity metric: jaccard, cosine, euclid (default from config)")
	flags.Float64VarP(&rf.threshold, "threshold", "t", 0, "match threshold (default from config)")
	flags.StringVarP(&rf.format, "format", "f", string(report.FormatTable), "output format: table, json, yaml")
}

// resolve returns the metric and threshold after applying config defaults.
func (rf *rankFlags) resolve(cmd *cobra.Command, a *app, m *detector.Model) (rank.Metric, float64, error) {
	metric := m.Params().Metric
	if rf.metric != "" {
		parsed, err := rank.ParseMetric(rf.metric)
		if err != nil {
			return "", 0, err
		}

		metric = parsed
	}

	threshold := a.cfg.Similarity.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = rf.threshold
	}

	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}

	return metric, threshold, nil
}

// QueryCommand holds the flags of the query command.
type QueryCommand struct {
	app *app
	rankFlags

	file        string
	onlyMatches bool
}

func newQueryCommand(a *app) *cobra.Command {
	qc := &QueryCommand{app: a}

	cmd := &cobra.Command{
		Use:   "query [doc-id|path]",
		Short: "Rank the near-duplicates of a document",
		Long: `Rank the LSH candidates of an indexed document, given by id or by its
path relative to the corpus root, or of an arbitrary file given with --file.

The file is shingled with the configured shingle settings, which must match
the ones used to build the model.`,
		Args: cobra.MaximumNArgs(1),
		RunE: qc.Run,
	}

	qc.register(cmd)
	cmd.Flags().StringVar(&qc.file, "file", "", "query with a document outside the corpus")
	cmd.Flags().BoolVar(&qc.onlyMatches, "matches", false, "only show results meeting the threshold")

	return cmd
}

// Run executes the query command.
func (qc *QueryCommand) Run(cmd *cobra.Command, args []string) error {
	if (len(args) == 1) == (qc.file != "") {
		return ErrQueryTarget
	}

	m, err := qc.app.loadModel()
	if err != nil {
		return err
	}

	metric, threshold, err := qc.resolve(cmd, qc.app, m)
	if err != nil {
		return err
	}

	w, err := qc.app.writer(cmd, qc.format)
	if err != nil {
		return err
	}

	var (
		label   string
		results []rank.Result
	)

	if qc.file != "" {
		label = qc.file
		results, err = qc.queryFile(cmd, m, metric)
	} else {
		label = args[0]
		results, err = qc.queryDocument(cmd, m, args[0], metric)
	}

	if err != nil {
		return err
	}

	return w.Query(report.NewQueryReport(label, metric, threshold, results, m.Path, qc.onlyMatches))
}

func (qc *QueryCommand) queryDocument(cmd *cobra.Command, m *detector.Model, arg string, metric rank.Metric) ([]rank.Result, error) {
	id, err := resolveDocument(m, arg)
	if err != nil {
		return nil, err
	}

	results, err := m.Query(cmd.Context(), id, metric)

	return qc.tolerateEmpty(results, err)
}

func (qc *QueryCommand) queryFile(cmd *cobra.Command, m *detector.Model, metric rank.Metric) ([]rank.Result, error) {
	sh, err := qc.app.cfg.Shingler()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(qc.file)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer f.Close()

	shingles, err := sh.FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}

	results, err := m.QueryShingles(cmd.Context(), shingles, metric)

	return qc.tolerateEmpty(results, err)
}

// tolerateEmpty turns a query without shingles into an empty result and a
// warning.
func (qc *QueryCommand) tolerateEmpty(results []rank.Result, err error) ([]rank.Result, error) {
	if errors.Is(err, minhash.ErrEmptySignature) {
		qc.app.logger.Warn("query document has no shingles; nothing can match", "error", err)

		return results, nil
	}

	return results, err
}

// PairsCommand holds the flags of the pairs command.
type PairsCommand struct {
	app *app
	rankFlags
}

func newPairsCommand(a *app) *cobra.Command {
	pc := &PairsCommand{app: a}

	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "List near-duplicate pairs across the corpus",
		Long: `List every pair of documents that share an LSH bucket and whose score
meets the threshold, best first.`,
		Args: cobra.NoArgs,
		RunE: pc.Run,
	}

	pc.register(cmd)

	return cmd
}

// Run executes the pairs command.
func (pc *PairsCommand) Run(cmd *cobra.Command, _ []string) error {
	m, err := pc.app.loadModel()
	if err != nil {
		return err
	}

	metric, threshold, err := pc.resolve(cmd, pc.app, m)
	if err != nil {
		return err
	}

	w, err := pc.app.writer(cmd, pc.format)
	if err != nil {
		return err
	}

	pairs, err := m.Pairs(cmd.Context(), metric, threshold)
	if err != nil {
		return err
	}

	return w.Pairs(report.NewPairsReport(metric, threshold, pairs, m.Path))
}
