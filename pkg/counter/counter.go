// Package counter accumulates per-category detection counts for a run.
package counter

import (
	"errors"
	"fmt"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

var (
	// ErrInvalidState is returned when a count is recorded for a category
	// that was not registered when the counter was created.
	ErrInvalidState = errors.New("invalid counter state")

	// ErrNegativeAmount is returned for negative increments. It wraps ErrInvalidState.
	ErrNegativeAmount = fmt.Errorf("%w: negative amount", ErrInvalidState)
)

// Entry is one category and its count
type Entry struct {
	Category types.Category `json:"category"`
	Count    int            `json:"count"`
}

// Tally is a set of pending increments, merged into a Counter as a unit
type Tally map[types.Category]int

// Counter maps a fixed set of categories to non-negative running counts.
// Categories are fixed at construction and counts never decrease.
// A Counter is not safe for concurrent use.
type Counter struct {
	order  []types.Category
	counts map[types.Category]int
}

// New creates a counter for the given categories, all starting at zero
func New(categories ...types.Category) (*Counter, error) {
	c := &Counter{
		order:  make([]types.Category, 0, len(categories)),
		counts: make(map[types.Category]int, len(categories)),
	}
	for _, cat := range categories {
		if cat == "" {
			return nil, fmt.Errorf("category label cannot be empty")
		}
		if _, ok := c.counts[cat]; ok {
			return nil, fmt.Errorf("duplicate category %q", cat)
		}
		c.order = append(c.order, cat)
		c.counts[cat] = 0
	}
	return c, nil
}

// Increment adds amount to the count of label
func (c *Counter) Increment(label types.Category, amount int) error {
	if err := c.check(label, amount); err != nil {
		return err
	}
	c.counts[label] += amount
	return nil
}

// Merge applies every increment in t. Either all increments are applied or,
// if any is invalid, none are.
func (c *Counter) Merge(t Tally) error {
	for label, amount := range t {
		if err := c.check(label, amount); err != nil {
			return err
		}
	}
	for label, amount := range t {
		c.counts[label] += amount
	}
	return nil
}

func (c *Counter) check(label types.Category, amount int) error {
	if _, ok := c.counts[label]; !ok {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidState, label)
	}
	if amount < 0 {
		return fmt.Errorf("%w: %d for %q", ErrNegativeAmount, amount, label)
	}
	return nil
}

// Get returns the count for label and whether label is registered
func (c *Counter) Get(label types.Category) (int, bool) {
	n, ok := c.counts[label]
	return n, ok
}

// Categories returns the registered categories in registration order
func (c *Counter) Categories() []types.Category {
	out := make([]types.Category, len(c.order))
	copy(out, c.order)
	return out
}

// Snapshot returns the current counts in registration order
func (c *Counter) Snapshot() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, cat := range c.order {
		out = append(out, Entry{Category: cat, Count: c.counts[cat]})
	}
	return out
}

// Total returns the sum of all counts
func (c *Counter) Total() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}
