package counter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

func TestNew(t *testing.T) {
	c, err := New(types.DefaultCategories()...)
	require.NoError(t, err)
	require.Equal(t, types.DefaultCategories(), c.Categories())
	for _, cat := range types.DefaultCategories() {
		n, ok := c.Get(cat)
		require.True(t, ok)
		require.Equal(t, 0, n)
	}

	_, err = New(types.Car, types.Car)
	require.Error(t, err)

	_, err = New(types.Car, "")
	require.Error(t, err)
}

func TestIncrement(t *testing.T) {
	c, err := New(types.Car, types.Bus)
	require.NoError(t, err)

	require.NoError(t, c.Increment(types.Car, 2))
	require.NoError(t, c.Increment(types.Car, 0))
	require.NoError(t, c.Increment(types.Car, 3))
	require.NoError(t, c.Increment(types.Bus, 1))

	n, _ := c.Get(types.Car)
	require.Equal(t, 5, n)
	require.Equal(t, 6, c.Total())

	err = c.Increment(types.Bike, 1)
	require.ErrorIs(t, err, ErrInvalidState)
	_, ok := c.Get(types.Bike)
	require.False(t, ok, "unknown category must not be added")

	err = c.Increment(types.Car, -1)
	require.ErrorIs(t, err, ErrNegativeAmount)
	require.ErrorIs(t, err, ErrInvalidState)
	n, _ = c.Get(types.Car)
	require.Equal(t, 5, n)
}

func TestMergeIsAllOrNothing(t *testing.T) {
	c, err := New(types.Car, types.Bike)
	require.NoError(t, err)

	require.NoError(t, c.Merge(Tally{types.Car: 2, types.Bike: 1}))
	require.Equal(t, []Entry{{types.Car, 2}, {types.Bike, 1}}, c.Snapshot())

	err = c.Merge(Tally{types.Car: 4, types.Bus: 1})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, []Entry{{types.Car, 2}, {types.Bike, 1}}, c.Snapshot())

	err = c.Merge(Tally{types.Car: 4, types.Bike: -2})
	require.ErrorIs(t, err, ErrNegativeAmount)
	require.Equal(t, 3, c.Total())
}

func TestCategoriesIsACopy(t *testing.T) {
	c, err := New(types.Car)
	require.NoError(t, err)
	cats := c.Categories()
	cats[0] = types.Bus
	require.Equal(t, []types.Category{types.Car}, c.Categories())
}
