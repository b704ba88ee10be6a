package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
)

func testPaths(id uint32) (string, bool) {
	paths := map[uint32]string{1: "b.txt", 2: "c.txt"}
	p, ok := paths[id]

	return p, ok
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := report.ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, f)

	_, err = report.ParseFormat("csv")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestNewQueryReport(t *testing.T) {
	t.Parallel()

	results := []rank.Result{{ID: 1, Score: 0.9}, {ID: 2, Score: 0.3}, {ID: 7, Score: 0.1}}

	rep := report.NewQueryReport("0", rank.Jaccard, 0.5, results, testPaths, false)
	assert.Equal(t, []report.Hit{
		{ID: 1, Path: "b.txt", Score: 0.9, Match: true},
		{ID: 2, Path: "c.txt", Score: 0.3},
		{ID: 7, Score: 0.1},
	}, rep.Hits)

	rep = report.NewQueryReport("0", rank.Jaccard, 0.5, results, nil, true)
	assert.Equal(t, []report.Hit{{ID: 1, Score: 0.9, Match: true}}, rep.Hits)

	rep = report.NewQueryReport("0", rank.Euclid, 5, []rank.Result{{ID: 1, Score: 4}, {ID: 2, Score: 6}}, nil, true)
	assert.Equal(t, []report.Hit{{ID: 1, Score: 4, Match: true}}, rep.Hits)
}

func TestWriter_QueryTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	rep := report.NewQueryReport("a.txt", rank.Cosine, 0.5,
		[]rank.Result{{ID: 1, Score: 0.75}, {ID: 2, Score: 0.25}}, testPaths, false)

	require.NoError(t, report.NewWriter(&buf, report.FormatTable, report.WithColor(false)).Query(rep))

	out := buf.String()
	assert.Contains(t, out, "Query a.txt (cosine, threshold 0.50)")
	assert.Contains(t, out, "b.txt")
	assert.Contains(t, out, "0.7500")
	assert.Contains(t, out, "2 candidates")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriter_QueryColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	rep := report.NewQueryReport("0", rank.Jaccard, 0.5, []rank.Result{{ID: 1, Score: 0.75}}, nil, false)

	require.NoError(t, report.NewWriter(&buf, report.FormatTable, report.WithColor(true)).Query(rep))

	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWriter_QueryJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	rep := report.NewQueryReport("0", rank.Jaccard, 0.5, []rank.Result{{ID: 1, Score: 0.75}}, testPaths, false)

	require.NoError(t, report.NewWriter(&buf, report.FormatJSON).Query(rep))

	var got report.QueryReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, rep, got)
}

func TestWriter_PairsYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	rep := report.NewPairsReport(rank.Jaccard, 0.8, []detector.Pair{{A: 1, B: 2, Score: 1}}, testPaths)

	require.NoError(t, report.NewWriter(&buf, report.FormatYAML).Pairs(rep))

	var got report.PairsReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, rep, got)
	assert.Contains(t, buf.String(), "path_a: b.txt")
}

func TestWriter_PairsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	rep := report.NewPairsReport(rank.Jaccard, 0.8, []detector.Pair{{A: 1, B: 2, Score: 1}}, testPaths)

	require.NoError(t, report.NewWriter(&buf, report.FormatTable, report.WithColor(false)).Pairs(rep))

	assert.Contains(t, buf.String(), "c.txt")
	assert.Contains(t, buf.String(), "1 pairs")
}

func TestWriter_EvaluationTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	rep := report.EvalReport{
		ID:     3,
		Path:   "d.txt",
		Metric: rank.Jaccard,
		Points: []detector.Evaluation{
			{Threshold: 0.9, Retrieved: 2, Precision: 0.5, PrecisionDefined: true},
			{Threshold: 0.1, Retrieved: 2, Precision: 1, Recall: 1, PrecisionDefined: true, RecallDefined: true},
		},
	}

	require.NoError(t, report.NewWriter(&buf, report.FormatTable, report.WithColor(false)).Evaluation(rep))

	out := buf.String()
	assert.Contains(t, out, "Evaluation of d.txt [3] (jaccard)")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "1.0000")
}

func TestWriter_BuildSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	rep := report.BuildReport{
		Root:         "corpus",
		Artifact:     ".neardup/neardup-model.gob.lz4",
		ArtifactSize: 2_500_000,
		Params:       detector.Params{SignatureLength: 200, BandRows: 5, Metric: rank.Jaccard},
		Stats: detector.BuildStats{
			Documents:      12_345,
			Shingles:       1_234_567,
			EmptyDocuments: 1,
			Buckets:        lsh.Stats{Buckets: 400_000, MaxBucket: 3, MeanBucket: 1.2},
			Duration:       1500 * time.Millisecond,
		},
	}

	require.NoError(t, report.NewWriter(&buf, report.FormatTable, report.WithColor(false)).Build(rep))

	out := buf.String()
	assert.Contains(t, out, "Indexed 12,345 documents from corpus with 1,234,567 distinct shingles in 1.5s")
	assert.Contains(t, out, "Skipped 1 empty document (no shingles)")
	assert.Contains(t, out, "40 bands of 5 rows")
	assert.Contains(t, out, "400,000")
	assert.Contains(t, out, "(2.5 MB)")
}

func TestWriter_CurveTableAndChart(t *testing.T) {
	t.Parallel()

	rep := report.NewCurveReport(20, 4, 10)

	assert.Equal(t, 5, rep.Bands)
	assert.Len(t, rep.Points, 11)
	assert.InDelta(t, 0.6687, rep.Threshold, 1e-3)

	var buf bytes.Buffer
	require.NoError(t, report.NewWriter(&buf, report.FormatTable, report.WithColor(false)).Curve(rep))
	assert.Contains(t, buf.String(), "S-curve for k=20, r=4, b=5")

	var html bytes.Buffer
	require.NoError(t, report.CurveChart(&html, rep))
	assert.True(t, strings.Contains(html.String(), "<html"))
	assert.Contains(t, html.String(), "LSH candidate probability")
}

func TestWriter_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := report.NewWriter(&bytes.Buffer{}, "xml").Pairs(report.PairsReport{})

	require.ErrorIs(t, err, report.ErrUnknownFormat)
}
