// Package points defines the contract for converting activity events into
// point deltas.
package points

import (
	"context"
	"math"
)

// defaultActivityWeight is used for activities without a configured weight.
const defaultActivityWeight = 1.0

// Option applies a configuration option to the WeightedCalculator.
type Option func(*WeightedCalculator)

// WithActivityWeights sets activity weights from a configuration map.
func WithActivityWeights(weights map[string]float64, defaultWeight float64) Option {
	return func(c *WeightedCalculator) {
		// Copy the weights map to avoid external modifications
		c.weights = make(map[string]float64)
		for activity, weight := range weights {
			if weight > 0 {
				c.weights[activity] = weight
			}
		}
		if defaultWeight > 0 {
			c.defaultWeight = defaultWeight
		}
	}
}

// Input abstracts the event fields needed for a point award.
type Input struct {
	UserID   int64
	Activity string
	Amount   float64
}

// Calculator converts an activity event into a point delta.
type Calculator interface {
	// Points computes the point delta for an event, honoring ctx.
	Points(ctx context.Context, in Input) (int64, error)
}

// WeightedCalculator implements Calculator with per-activity weights.
type WeightedCalculator struct {
	weights       map[string]float64
	defaultWeight float64
}

// NewWeightedCalculator creates a calculator with configuration options.
func NewWeightedCalculator(opts ...Option) *WeightedCalculator {
	c := &WeightedCalculator{
		weights:       make(map[string]float64),
		defaultWeight: defaultActivityWeight,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Points computes the point delta for the given input. Awards are rounded
// to the nearest whole point and never negative; point totals only shrink
// through the periodic reset, not through awards.
func (c *WeightedCalculator) Points(ctx context.Context, in Input) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	weight, ok := c.weights[in.Activity]
	if !ok {
		weight = c.defaultWeight
	}

	award := math.Round(in.Amount * weight)
	if award < 0 {
		award = 0
	}
	return int64(award), nil
}
