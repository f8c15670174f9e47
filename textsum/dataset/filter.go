package dataset

import (
	"errors"
	"fmt"
)

// FilterConfig holds the pair retention thresholds.
type FilterConfig struct {
	MaxLength          int
	MinLength          int
	MaxUnknownInInput  int
	MaxUnknownInTarget int
}

// DefaultFilterConfig returns the standard thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxLength:          600,
		MinLength:          16,
		MaxUnknownInInput:  5,
		MaxUnknownInTarget: 2,
	}
}

// Validate rejects thresholds that can never retain a pair.
func (c FilterConfig) Validate() error {
	if c.MinLength < 0 {
		return fmt.Errorf("min length must not be negative, got %d", c.MinLength)
	}
	if c.MaxLength < c.MinLength {
		return fmt.Errorf("max length %d is below min length %d", c.MaxLength, c.MinLength)
	}
	if c.MaxUnknownInInput < 0 || c.MaxUnknownInTarget < 0 {
		return errors.New("unknown-token limits must not be negative")
	}
	return nil
}

// Pairs holds positionally paired input and target sequences.
type Pairs struct {
	Inputs  [][]int
	Targets [][]int
}

// Len returns the number of pairs.
func (p Pairs) Len() int { return len(p.Inputs) }

// MaxID returns the largest id referenced by any sequence, or -1.
func (p Pairs) MaxID() int {
	maxID := -1
	for _, group := range [2][][]int{p.Inputs, p.Targets} {
		for _, seq := range group {
			for _, id := range seq {
				if id > maxID {
					maxID = id
				}
			}
		}
	}
	return maxID
}

// Stats counts pairs by the first rule that rejected them.
type Stats struct {
	Total             int
	Retained          int
	TargetTooShort    int
	TargetTooLong     int
	InputTooShort     int
	TooManyUnkTarget  int
	TooManyUnkInput   int
	MismatchedDropped int
}

// Filter keeps pair i iff
//
//	MinLength <= len(targets[i]) <= MaxLength
//	len(inputs[i]) >= MinLength
//	UnknownCount(targets[i]) <= MaxUnknownInTarget
//	UnknownCount(inputs[i]) <= MaxUnknownInInput
//
// and returns the survivors ordered by ascending target length, keeping
// the original order within a length. Pairs beyond the shorter of the two
// slices are dropped and counted in Stats.MismatchedDropped.
func Filter(inputs, targets [][]int, unkID int, cfg FilterConfig) (Pairs, Stats) {
	n := min(len(inputs), len(targets))
	stats := Stats{Total: max(len(inputs), len(targets)), MismatchedDropped: max(len(inputs), len(targets)) - n}

	buckets := NewLengthBuckets()
	for i := 0; i < n; i++ {
		in, tgt := inputs[i], targets[i]
		switch {
		case len(tgt) < cfg.MinLength:
			stats.TargetTooShort++
		case len(tgt) > cfg.MaxLength:
			stats.TargetTooLong++
		case len(in) < cfg.MinLength:
			stats.InputTooShort++
		case UnknownCount(tgt, unkID) > cfg.MaxUnknownInTarget:
			stats.TooManyUnkTarget++
		case UnknownCount(in, unkID) > cfg.MaxUnknownInInput:
			stats.TooManyUnkInput++
		default:
			buckets.Add(len(tgt), uint32(i))
		}
	}

	order := buckets.Ordered()
	out := Pairs{
		Inputs:  make([][]int, 0, len(order)),
		Targets: make([][]int, 0, len(order)),
	}
	for _, idx := range order {
		out.Inputs = append(out.Inputs, inputs[idx])
		out.Targets = append(out.Targets, targets[idx])
	}
	stats.Retained = out.Len()
	return out, stats
}
