package wire

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/sample"
)

func nan() float64 { return math.NaN() }

func samplesOf(t *testing.T, frames []Frame) []sample.Sample {
	t.Helper()
	out := make([]sample.Sample, 0, len(frames))
	for _, f := range frames {
		require.NoError(t, f.Err, "frame %q", f.Raw)
		out = append(out, f.Sample)
	}
	return out
}

func TestDecoder_SingleChunk(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("HR:72.0\nACC:1.00,2.00,3.00\n"))

	assert.Equal(t, []sample.Sample{
		sample.NewHeartRate(72),
		sample.NewAcceleration(1, 2, 3),
	}, samplesOf(t, frames))
	assert.Zero(t, d.Pending())
}

func TestDecoder_SplitAcrossReads(t *testing.T) {
	d := NewDecoder()

	assert.Empty(t, d.Feed([]byte("HR:7")))
	assert.Equal(t, 4, d.Pending())

	frames := d.Feed([]byte("2.5\nAC"))
	assert.Equal(t, []sample.Sample{sample.NewHeartRate(72.5)}, samplesOf(t, frames))

	frames = d.Feed([]byte("C:0.10,0.20,0.30\n"))
	assert.Equal(t, []sample.Sample{sample.NewAcceleration(0.1, 0.2, 0.3)}, samplesOf(t, frames))
}

func TestDecoder_ByteByByteMatchesWhole(t *testing.T) {
	stream := "HR:80.0\r\nACC:1.50,-2.50,3.25\n\nHR:91.2\n"

	whole := samplesOf(t, NewDecoder().Feed([]byte(stream)))

	d := NewDecoder()
	var pieced []Frame
	for i := 0; i < len(stream); i++ {
		pieced = append(pieced, d.Feed([]byte{stream[i]})...)
	}

	assert.Equal(t, whole, samplesOf(t, pieced))
	assert.Len(t, whole, 3)
}

func TestDecoder_MalformedDoesNotCorruptBuffer(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("HR:72.0\nGARBAGE\nHR:x\nACC:1.00,2.00\nHR:95.0\n"))

	require.Len(t, frames, 5)
	assert.NoError(t, frames[0].Err)
	assert.ErrorIs(t, frames[1].Err, errors.ErrMalformed)
	assert.ErrorIs(t, frames[2].Err, errors.ErrMalformed)
	assert.ErrorIs(t, frames[3].Err, errors.ErrMalformed)
	require.NoError(t, frames[4].Err)
	assert.Equal(t, sample.NewHeartRate(95), frames[4].Sample)
	assert.Equal(t, "GARBAGE", frames[1].Raw)
}

func TestDecoder_OversizedTailIsDiscarded(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte(strings.Repeat("A", MaxFrameSize+1)))

	require.Len(t, frames, 1)
	assert.ErrorIs(t, frames[0].Err, errors.ErrMalformed)
	assert.Zero(t, d.Pending())

	frames = d.Feed([]byte("HR:70.0\n"))
	assert.Empty(t, frames, "remainder of the overlong line is dropped")

	frames = d.Feed([]byte("HR:71.0\n"))
	assert.Equal(t, []sample.Sample{sample.NewHeartRate(71)}, samplesOf(t, frames))
}

func TestDecoder_OverlongLineSplitAcrossChunks(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte(strings.Repeat("X", 300)))
	require.Len(t, frames, 1)
	assert.ErrorIs(t, frames[0].Err, errors.ErrMalformed)

	frames = d.Feed([]byte("XXXX"))
	assert.Empty(t, frames)
	assert.Zero(t, d.Pending())

	frames = d.Feed([]byte("HR:150.0\nHR:80.0\n"))
	assert.Equal(t, []sample.Sample{sample.NewHeartRate(80)}, samplesOf(t, frames))
}

func TestDecoder_ResetEndsDiscard(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte(strings.Repeat("X", 300)))
	d.Reset()

	frames := d.Feed([]byte("HR:80.0\n"))
	assert.Equal(t, []sample.Sample{sample.NewHeartRate(80)}, samplesOf(t, frames))
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("HR:7"))
	d.Reset()
	assert.Zero(t, d.Pending())

	frames := d.Feed([]byte("5.0\n"))
	require.Len(t, frames, 1)
	assert.Error(t, frames[0].Err, "partial frame must not survive reset")
}
