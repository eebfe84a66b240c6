// Package sample splits a prepared loan table into random, disjoint partitions.
package sample

import (
	"context"
	"errors"
	"fmt"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/willbeason/loan-prep/pkg/frame"
	"math/rand"
)

var ErrFractions = errors.New("invalid partition fractions")

// Thresholds turns partition fractions into cumulative upper bounds. Each
// fraction must be positive and together they must not exceed one.
func Thresholds(fractions []float64) ([]float64, error) {
	if len(fractions) == 0 {
		return nil, fmt.Errorf("%w: none given", ErrFractions)
	}

	thresholds := make([]float64, len(fractions))
	sum := 0.0
	for i, fraction := range fractions {
		if fraction <= 0 {
			return nil, fmt.Errorf("%w: partition %d has fraction %v", ErrFractions, i, fraction)
		}
		sum += fraction
		thresholds[i] = sum
	}
	if sum > 1 {
		return nil, fmt.Errorf("%w: fractions sum to %v", ErrFractions, sum)
	}
	return thresholds, nil
}

// Assign draws one value per row and returns the partition of each row, or -1
// for rows that fall in no partition. The same seed gives the same assignment.
func Assign(rows int64, thresholds []float64, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	assigned := make([]int, rows)
	for i := range assigned {
		assigned[i] = -1
		value := rng.Float64()
		for j, threshold := range thresholds {
			if value < threshold {
				assigned[i] = j
				break
			}
		}
	}
	return assigned
}

// Partition splits f into len(fractions) frames. Rows keep their order.
func Partition(ctx context.Context, f *frame.Frame, fractions []float64, seed int64) ([]*frame.Frame, error) {
	thresholds, err := Thresholds(fractions)
	if err != nil {
		return nil, err
	}

	assigned := Assign(f.NumRows(), thresholds, seed)

	partitions := make([]*frame.Frame, 0, len(thresholds))
	for p := range thresholds {
		builder := array.NewBooleanBuilder(f.Allocator())
		builder.Reserve(len(assigned))
		for _, a := range assigned {
			builder.UnsafeAppend(a == p)
		}
		mask := builder.NewArray()
		builder.Release()

		partition, err := f.Filter(ctx, mask)
		mask.Release()
		if err != nil {
			for _, done := range partitions {
				done.Release()
			}
			return nil, fmt.Errorf("building partition %d: %w", p, err)
		}
		partitions = append(partitions, partition)
	}
	return partitions, nil
}
