package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

func TestParseObjectList(t *testing.T) {
	raw := "```json\n" + `{
  "objects": [
    {"label": " Car ", "confidence": 0.9, "box": {"x": 0.1, "y": 0.2, "w": 0.3, "h": 0.4}}, // front
    /* second */
    {"label": "bus", "confidence": 0.6, "box": {"x": 0.5, "y": 0.5, "w": 0.2, "h": 0.2}},
  ]
}` + "\n```"

	list, err := ParseObjectList(raw)
	require.NoError(t, err)
	require.Len(t, list.Objects, 2)
	require.Equal(t, types.DetectedObject{
		Label:      "car",
		Confidence: 0.9,
		Box:        types.NormBox{X: 0.1, Y: 0.2, W: 0.3, H: 0.4},
	}, list.Objects[0])
	require.Equal(t, "bus", list.Objects[1].Label)
}

func TestParseObjectListBareArray(t *testing.T) {
	list, err := ParseObjectList(`Here you go: [{"label":"bike","confidence":0.7,"box":{"x":0,"y":0,"w":0.1,"h":0.1}}] done`)
	require.NoError(t, err)
	require.Len(t, list.Objects, 1)
	require.Equal(t, "bike", list.Objects[0].Label)
}

func TestParseObjectListEmpty(t *testing.T) {
	list, err := ParseObjectList(`{"objects": []}`)
	require.NoError(t, err)
	require.Empty(t, list.Objects)
}

func TestParseObjectListErrors(t *testing.T) {
	for _, raw := range []string{"", "I see two cars.", `{"objects": [{"label": }]}`} {
		_, err := ParseObjectList(raw)
		require.ErrorIs(t, err, ErrUnparseable, raw)
	}
}
