package detector

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
)

// ErrInvalidParameter is returned when Params fail validation.
var ErrInvalidParameter = errors.New("detector: invalid parameter")

// Params are the detector's algorithm parameters. None has a default: every
// field must be set by the caller.
type Params struct {
	// SignatureLength is the number of MinHash functions k.
	SignatureLength int `json:"signature_length" yaml:"signature_length"`

	// Seed selects the hash family.
	Seed int64 `json:"seed" yaml:"seed"`

	// BandRows is the number of signature rows per LSH band r.
	BandRows int `json:"band_rows" yaml:"band_rows"`

	// Metric is the default ranking metric.
	Metric rank.Metric `json:"metric" yaml:"metric"`

	// Workers bounds build parallelism; 0 uses every CPU.
	Workers int `json:"workers" yaml:"workers"`
}

// Validate reports the first violated constraint.
func (p Params) Validate() error {
	switch {
	case p.SignatureLength < 1:
		return fmt.Errorf("%w: signature length must be >= 1, got %d", ErrInvalidParameter, p.SignatureLength)
	case p.BandRows < 1 || p.BandRows > p.SignatureLength:
		return fmt.Errorf("%w: band rows must be in [1, %d], got %d", ErrInvalidParameter, p.SignatureLength, p.BandRows)
	case p.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidParameter, p.Workers)
	}

	if err := p.Metric.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	return nil
}

// Bands returns the number of LSH bands, SignatureLength / BandRows.
func (p Params) Bands() int {
	return lsh.NumBands(p.SignatureLength, p.BandRows)
}

// Threshold returns the similarity at which the banding S-curve is steepest.
func (p Params) Threshold() float64 {
	return lsh.Threshold(p.BandRows, p.Bands())
}
