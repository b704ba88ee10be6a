package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/neardup/pkg/detector"
)

// BuildReport summarizes an index run.
type BuildReport struct {
	Root         string              `json:"root"          yaml:"root"`
	Artifact     string              `json:"artifact"      yaml:"artifact"`
	ArtifactSize int64               `json:"artifact_size" yaml:"artifact_size"`
	Params       detector.Params     `json:"params"        yaml:"params"`
	Stats        detector.BuildStats `json:"stats"         yaml:"stats"`
}

// Build renders a build summary. The table format prints human-readable
// sentences instead of a grid.
func (w *Writer) Build(rep BuildReport) error {
	if done, err := w.encode(rep); done {
		return err
	}

	st := rep.Stats

	var b strings.Builder

	fmt.Fprintf(&b, "Indexed %s documents from %s with %s distinct shingles in %s\n",
		humanize.Comma(int64(st.Documents)), rep.Root,
		humanize.Comma(int64(st.Shingles)), st.Duration.Round(time.Millisecond))

	if st.EmptyDocuments > 0 {
		fmt.Fprintf(&b, "%s\n", w.dim.Sprintf("Skipped %s empty %s (no shingles)",
			humanize.Comma(int64(st.EmptyDocuments)), plural(st.EmptyDocuments, "document", "documents")))
	}

	fmt.Fprintf(&b, "Signatures: k=%d, %d bands of %d rows, threshold ~%.2f\n",
		rep.Params.SignatureLength, rep.Params.Bands(), rep.Params.BandRows, rep.Params.Threshold())
	fmt.Fprintf(&b, "Buckets: %s, largest holds %s %s, mean %.2f\n",
		humanize.Comma(int64(st.Buckets.Buckets)), humanize.Comma(int64(st.Buckets.MaxBucket)),
		plural(st.Buckets.MaxBucket, "document", "documents"), st.Buckets.MeanBucket)

	if rep.Artifact != "" {
		fmt.Fprintf(&b, "Model saved to %s (%s)\n", rep.Artifact, humanize.Bytes(uint64(max(rep.ArtifactSize, 0))))
	}

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return fmt.Errorf("report: write summary: %w", err)
	}

	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
