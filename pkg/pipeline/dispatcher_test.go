package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/vehicle-counter/pkg/annotate"
	"github.com/menta2k/vehicle-counter/pkg/counter"
	"github.com/menta2k/vehicle-counter/pkg/detection"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

func fixed(boxes ...types.Box) detection.Detector {
	return detection.DetectorFunc(func(context.Context, *image.NRGBA) ([]types.Box, error) {
		return boxes, nil
	})
}

func TestDispatcherOrderAndCounts(t *testing.T) {
	overlap := types.Box{X: 2, Y: 2, W: 6, H: 6}
	d, err := NewDispatcher([]*detection.Handle{
		mustHandle(t, types.Car, red, fixed(overlap, types.Box{X: 10, Y: 10, W: 2, H: 2})),
		mustHandle(t, types.Bus, blue, fixed(overlap)),
		mustHandle(t, types.Bike, types.Color{G: 255}, fixed()),
	})
	require.NoError(t, err)
	require.Equal(t, []types.Category{types.Car, types.Bus, types.Bike}, d.Categories())

	c, err := counter.New(d.Categories()...)
	require.NoError(t, err)
	f := solidFrame(16, 16, color.NRGBA{0, 0, 0, 255})

	n, err := d.Process(context.Background(), f, c)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// the later handle draws over the earlier one
	require.Equal(t, color.NRGBA{0, 0, 255, 255}, f.NRGBAAt(2, 2))
	require.Equal(t, color.NRGBA{255, 0, 0, 255}, f.NRGBAAt(10, 10))

	car, _ := c.Get(types.Car)
	bus, _ := c.Get(types.Bus)
	bike, _ := c.Get(types.Bike)
	require.Equal(t, 2, car)
	require.Equal(t, 1, bus)
	require.Equal(t, 0, bike)
}

func TestDispatcherFailureLeavesCounterUntouched(t *testing.T) {
	boom := errors.New("boom")
	d, err := NewDispatcher([]*detection.Handle{
		mustHandle(t, types.Car, red, fixed(types.Box{X: 1, Y: 1, W: 1, H: 1})),
		mustHandle(t, types.Bus, blue, detection.DetectorFunc(func(context.Context, *image.NRGBA) ([]types.Box, error) {
			return nil, boom
		})),
	})
	require.NoError(t, err)
	c, err := counter.New(types.Car, types.Bus)
	require.NoError(t, err)

	_, err = d.Process(context.Background(), solidFrame(4, 4, color.NRGBA{}), c)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, c.Total())
}

func TestDispatcherUnregisteredCategory(t *testing.T) {
	d, err := NewDispatcher([]*detection.Handle{mustHandle(t, types.Car, red, fixed())})
	require.NoError(t, err)
	c, err := counter.New(types.Bus)
	require.NoError(t, err)

	_, err = d.Process(context.Background(), solidFrame(4, 4, color.NRGBA{}), c)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDispatcherWithLabels(t *testing.T) {
	d, err := NewDispatcher([]*detection.Handle{mustHandle(t, types.Car, red, fixed(types.Box{X: 4, Y: 20, W: 20, H: 10}))})
	require.NoError(t, err)
	d = d.WithAnnotator(annotate.NewWithLabels(2))
	c, err := counter.New(types.Car)
	require.NoError(t, err)

	f := solidFrame(40, 40, color.NRGBA{0, 0, 0, 255})
	_, err = d.Process(context.Background(), f, c)
	require.NoError(t, err)

	labelled := false
	for y := 0; y < 20 && !labelled; y++ {
		for x := 0; x < 40; x++ {
			if f.NRGBAAt(x, y) != (color.NRGBA{0, 0, 0, 255}) {
				labelled = true
				break
			}
		}
	}
	require.True(t, labelled)
}

func TestDispatcherValidation(t *testing.T) {
	_, err := NewDispatcher(nil)
	require.Error(t, err)
	_, err = NewDispatcher([]*detection.Handle{nil})
	require.Error(t, err)
}
