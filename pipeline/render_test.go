package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-odometry/images"
	"github.com/nvr-ai/go-odometry/labels"
	"github.com/nvr-ai/go-odometry/test"
)

func overlayPixels(t *testing.T, output gocv.Mat, channel int) []int {
	t.Helper()
	idx, err := images.DominantPixels(output, channel, 50)
	require.NoError(t, err)
	return idx
}

const (
	greenChannel = 1
	redChannel   = 2
)

// twoFrameSession runs two shifted scene frames through a matching session and leaves
// the second one current.
func twoFrameSession(t *testing.T) *Session {
	t.Helper()
	gen := test.NewMockFrameGenerator(640, 480)
	session := newMatchingSession()

	session.Input(gen.GenerateSceneFrame(0, 0))
	require.NoError(t, session.Filter())
	require.NoError(t, session.Extract())
	session.ForwardFrameState()

	session.Input(gen.GenerateSceneFrame(6, 4))
	require.NoError(t, session.Filter())
	require.NoError(t, session.Extract())
	return session
}

func TestVisualOutputFirstFrameHasKeypointsOnly(t *testing.T) {
	gen := test.NewMockFrameGenerator(640, 480)
	session := newMatchingSession()
	defer session.Close()

	session.Input(gen.GenerateSceneFrame(0, 0))
	require.NoError(t, session.Filter())
	require.NoError(t, session.Extract())

	output, err := session.VisualOutput()
	require.NoError(t, err)
	defer output.Close()

	assert.Equal(t, 480, output.Rows())
	assert.Equal(t, 640, output.Cols())
	assert.NotEmpty(t, overlayPixels(t, output, redChannel))
	assert.Empty(t, overlayPixels(t, output, greenChannel))
}

func TestVisualOutputDrawsMatchLines(t *testing.T) {
	session := twoFrameSession(t)
	defer session.Close()
	require.NotEmpty(t, session.Matches())

	output, err := session.VisualOutput()
	require.NoError(t, err)
	defer output.Close()

	assert.NotEmpty(t, overlayPixels(t, output, greenChannel))
}

func TestVisualOutputWithoutFeatures(t *testing.T) {
	gen := test.NewMockFrameGenerator(320, 240)
	session := NewSession(DefaultConfig())
	defer session.Close()

	session.Input(gen.GenerateStaticFrame())
	require.NoError(t, session.Filter())
	require.NoError(t, session.Extract())
	assert.Empty(t, session.Current().Features)

	for _, base := range []VisualOutputBase{BaseGray, BaseCanny, BaseOriginal} {
		session.SelectVisualOutputBase(base)
		output, err := session.VisualOutput()
		require.NoError(t, err, base.String())
		assert.Equal(t, 3, output.Channels(), base.String())
		assert.Empty(t, overlayPixels(t, output, redChannel), base.String())
		output.Close()
	}
}

func TestVisualOutputBeforeFilter(t *testing.T) {
	gen := test.NewMockFrameGenerator(320, 240)
	session := NewSession(DefaultConfig())
	defer session.Close()

	session.Input(gen.GenerateStaticFrame())
	output, err := session.VisualOutput()
	defer output.Close()
	assert.Error(t, err)
}

func TestVisualOutputBaseOnlyChangesBackground(t *testing.T) {
	session := twoFrameSession(t)
	defer session.Close()

	var (
		reds      [][]int
		greens    [][]int
		checksums []string
	)
	for _, base := range []VisualOutputBase{BaseGray, BaseCanny, BaseOriginal} {
		session.SelectVisualOutputBase(base)
		output, err := session.VisualOutput()
		require.NoError(t, err, base.String())

		reds = append(reds, overlayPixels(t, output, redChannel))
		greens = append(greens, overlayPixels(t, output, greenChannel))
		checksums = append(checksums, images.ComputeMatChecksum(output))
		output.Close()
	}

	require.NotEmpty(t, reds[0])
	require.NotEmpty(t, greens[0])
	for i := 1; i < len(reds); i++ {
		assert.Equal(t, reds[0], reds[i])
		assert.Equal(t, greens[0], greens[i])
	}
	assert.NotEqual(t, checksums[0], checksums[1])
}

func TestSelectVisualOutputBaseIsIdempotent(t *testing.T) {
	session := twoFrameSession(t)
	defer session.Close()

	var checksums []string
	for i := 0; i < 2; i++ {
		session.SelectVisualOutputBase(BaseCanny)
		output, err := session.VisualOutput()
		require.NoError(t, err)
		checksums = append(checksums, images.ComputeMatChecksum(output))
		output.Close()
	}

	assert.Equal(t, BaseCanny, session.VisualOutputBase())
	assert.Equal(t, checksums[0], checksums[1])
}

func TestVisualOutputPrintsLabels(t *testing.T) {
	track := &labels.Track{Labels: []labels.Label{
		{Pitch: 0.01, Yaw: -0.02},
		{Pitch: math.NaN(), Yaw: math.NaN()},
	}}
	gen := test.NewMockFrameGenerator(320, 240)

	render := func(track *labels.Track) (string, string) {
		session := NewSession(DefaultConfig(), WithLabels(track))
		defer session.Close()

		var sums []string
		for i := 0; i < 2; i++ {
			output, err := session.Step(gen.GenerateStaticFrame())
			require.NoError(t, err)
			sums = append(sums, images.ComputeMatChecksum(output))
			output.Close()
			session.ForwardFrameState()
		}
		return sums[0], sums[1]
	}

	plainFirst, plainSecond := render(nil)
	labeledFirst, labeledSecond := render(track)

	assert.NotEqual(t, plainFirst, labeledFirst)
	assert.Equal(t, plainSecond, labeledSecond)
}
