package models

import (
	"fmt"
	"strings"
)

// Version selects which side of the move distribution the probability
// matrix is built from.
type Version int

const (
	VersionAbsolute Version = iota
	VersionUp
	VersionDown
)

var versionNames = [...]string{"Absolute", "Up", "Down"}

func (v Version) String() string {
	if v < VersionAbsolute || v > VersionDown {
		return fmt.Sprintf("Version(%d)", int(v))
	}
	return versionNames[v]
}

// Versions lists every version in report order.
func Versions() []Version { return []Version{VersionAbsolute, VersionUp, VersionDown} }

// ParseVersion accepts the version names case-insensitively.
func ParseVersion(s string) (Version, error) {
	for i, name := range versionNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Version(i), nil
		}
	}
	return 0, &InvalidVersionError{Value: s}
}

func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ProbabilityCell is the tail probability, in percent, that a move over
// Hours hours exceeds Bucket bps.
type ProbabilityCell struct {
	Bucket      float64 `json:"bucket"`
	Hours       int     `json:"hours"`
	Probability Number  `json:"probability"`
}

// ProbabilityMatrix is dense over Buckets x Hours. Cells[i][j] belongs to
// Buckets[i] and Hours[j].
type ProbabilityMatrix struct {
	Buckets []float64  `json:"buckets"`
	Hours   []int      `json:"hours"`
	Cells   [][]Number `json:"cells"`
}

// Cell returns the probability at (bucket index, hour index).
func (m ProbabilityMatrix) Cell(i, j int) ProbabilityCell {
	return ProbabilityCell{Bucket: m.Buckets[i], Hours: m.Hours[j], Probability: m.Cells[i][j]}
}

// ProbabilityResult is the outcome of one matrix build. CDF is the percent of
// pooled moves at or below Target, CCDF its complement.
type ProbabilityResult struct {
	Symbol     string            `json:"symbol,omitempty"`
	Interval   Interval          `json:"interval,omitempty"`
	Version    Version           `json:"version"`
	MaxHorizon int               `json:"max_horizon"`
	Target     float64           `json:"target"`
	CDF        Number            `json:"cdf"`
	CCDF       Number            `json:"ccdf"`
	Pooled     Summary           `json:"pooled"`
	Matrix     ProbabilityMatrix `json:"matrix"`
	Empty      bool              `json:"empty"`
}

// Err returns ErrEmptySeries when no moves were pooled.
func (r ProbabilityResult) Err() error {
	if r.Empty {
		return ErrEmptySeries
	}
	return nil
}
