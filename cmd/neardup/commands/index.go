package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/hashfamily"
	"github.com/Sumatoshi-tech/neardup/pkg/corpus"
	"github.com/Sumatoshi-tech/neardup/pkg/detector"
)

// progressBarWidth is the width of the loading progress bar.
const progressBarWidth = 50

// IndexCommand holds the flags of the index command.
type IndexCommand struct {
	app *app

	include    []string
	k          int
	rows       int
	seed       int64
	size       int
	mode       string
	workers    int
	format     string
	noProgress bool
}

func newIndexCommand(a *app) *cobra.Command {
	ic := &IndexCommand{app: a}

	cmd := &cobra.Command{
		Use:   "index [root]",
		Short: "Build and save a model for a corpus",
		Long: `Shingle every matching file under root, generate MinHash signatures,
band them into LSH buckets and save the model to the artifacts directory.

Flags override the configuration file for this run only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: ic.Run,
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&ic.include, "include", "i", nil, "doublestar patterns of files to index")
	flags.IntVar(&ic.k, "k", 0, "signature length")
	flags.IntVarP(&ic.rows, "rows", "r", 0, "rows per LSH band")
	flags.Int64Var(&ic.seed, "seed", 0, "hash family seed")
	flags.IntVar(&ic.size, "shingle-size", 0, "shingle width")
	flags.StringVar(&ic.mode, "mode", "", "shingle unit: char or word")
	flags.IntVarP(&ic.workers, "workers", "w", 0, "parallel workers (0 = all CPUs)")
	flags.StringVarP(&ic.format, "format", "f", string(report.FormatTable), "output format: table, json, yaml")
	flags.BoolVar(&ic.noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

// applyFlags copies explicitly set flags into the loaded configuration.
func (ic *IndexCommand) applyFlags(cmd *cobra.Command, args []string) error {
	cfg := ic.app.cfg
	flags := cmd.Flags()

	if len(args) == 1 {
		cfg.Corpus.Root = args[0]
	}

	if flags.Changed("include") {
		cfg.Corpus.Include = ic.include
	}

	if flags.Changed("k") {
		cfg.MinHash.SignatureLength = ic.k
	}

	if flags.Changed("rows") {
		cfg.LSH.BandRows = ic.rows
	}

	if flags.Changed("seed") {
		cfg.MinHash.Seed = ic.seed
	}

	if flags.Changed("shingle-size") {
		cfg.Shingle.Size = ic.size
	}

	if flags.Changed("mode") {
		cfg.Shingle.Mode = ic.mode
	}

	if flags.Changed("workers") {
		cfg.Corpus.Workers = ic.workers
		cfg.MinHash.Workers = ic.workers
	}

	return cfg.Validate()
}

// Run executes the index command.
func (ic *IndexCommand) Run(cmd *cobra.Command, args []string) error {
	if err := ic.applyFlags(cmd, args); err != nil {
		return err
	}

	w, err := ic.app.writer(cmd, ic.format)
	if err != nil {
		return err
	}

	cfg := ic.app.cfg

	sh, err := cfg.Shingler()
	if err != nil {
		return err
	}

	codec, err := cfg.ArtifactCodec()
	if err != nil {
		return err
	}

	docs, err := corpus.Discover(cfg.Corpus.Root, cfg.Corpus.Include)
	if err != nil {
		return err
	}

	ic.app.logger.Info("corpus discovered", "root", cfg.Corpus.Root, "documents", len(docs))

	loadOpts := []corpus.LoadOption{corpus.WithWorkers(cfg.Corpus.Workers)}

	if !ic.noProgress && !ic.app.quiet {
		bar := newProgressBar(len(docs), "Shingling", cmd.ErrOrStderr())
		loadOpts = append(loadOpts, corpus.WithProgress(func(done, _ int) {
			_ = bar.Set(done)
		}))

		defer func() { _ = bar.Finish() }()
	}

	inc, err := corpus.Load(cmd.Context(), docs, sh, loadOpts...)
	if err != nil {
		return err
	}

	paths := make(map[uint32]string, len(docs))
	for _, doc := range docs {
		paths[doc.ID] = doc.Name
	}

	opts, err := ic.app.detectorOptions()
	if err != nil {
		return err
	}

	model, err := detector.Build(cmd.Context(), inc, cfg.DetectorParams(), append(opts, detector.WithPaths(paths))...)
	if errors.Is(err, hashfamily.ErrTooManyFunctions) {
		return fmt.Errorf("%w (the corpus has %d distinct shingles; lower minhash.signature_length or --k to at most %d)",
			err, inc.Rows(), hashfamily.MaxFunctions(inc.Rows()))
	}

	if err != nil {
		return err
	}

	if err := model.Save(cfg.Artifacts.Dir, codec); err != nil {
		return err
	}

	artifact := detector.Persister(codec).Path(cfg.Artifacts.Dir)

	var size int64
	if info, statErr := os.Stat(artifact); statErr == nil {
		size = info.Size()
	}

	if ic.app.quiet && w.Format() == report.FormatTable {
		return nil
	}

	return w.Build(report.BuildReport{
		Root:         cfg.Corpus.Root,
		Artifact:     artifact,
		ArtifactSize: size,
		Params:       model.Params(),
		Stats:        model.Stats(),
	})
}

func newProgressBar(total int, description string, writer io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(writer)
		}),
	)
}
