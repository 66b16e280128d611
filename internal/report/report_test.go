package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/vehicle-counter/pkg/counter"
	"github.com/menta2k/vehicle-counter/pkg/pipeline"
)

func summary(frames int, total time.Duration) *pipeline.Summary {
	return &pipeline.Summary{
		Frames: frames,
		Counts: []counter.Entry{
			{Category: "car", Count: 3},
			{Category: "bike", Count: 0},
			{Category: "pedestrian", Count: 1},
			{Category: "bus", Count: 2},
		},
		Total: total,
	}
}

func TestCountLine(t *testing.T) {
	require.Equal(t, "Cars: 3 Bikes: 0 Pedestrian: 1 Bus: 2", CountLine(summary(2, time.Second)))

	custom := &pipeline.Summary{Counts: []counter.Entry{{Category: "truck", Count: 4}}}
	require.Equal(t, "Truck: 4", CountLine(custom))
}

func TestAverage(t *testing.T) {
	require.Equal(t, "0.5000 seconds", Average(summary(2, time.Second)))
	require.Equal(t, NotApplicable, Average(summary(0, 0)))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, summary(0, 0)))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Processing complete. Results:\n"))
	require.Contains(t, out, "Cars: 3 Bikes: 0 Pedestrian: 1 Bus: 2")
	require.Contains(t, out, "Average per frame")
	require.Contains(t, out, NotApplicable)
	require.Contains(t, out, "Total objects")
}
