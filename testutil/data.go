package testutil

import (
	"bytes"

	"github.com/c360/moodlink/sample"
	"github.com/c360/moodlink/wire"
)

// ValidFrames are well-formed frames with their trailing delimiter.
var ValidFrames = []string{
	"HR:72.0\n",
	"HR:95.5\n",
	"ACC:0.12,-0.40,9.81\n",
	"ACC:12.00,8.50,3.25\n",
}

// MalformedFrames fail to decode. Each ends with a delimiter.
var MalformedFrames = []string{
	"garbage\n",
	"HR:\n",
	"HR:abc\n",
	"HR:NaN\n",
	"ACC:1.0,2.0\n",
	"ACC:1.0,2.0,3.0,4.0\n",
	"TEMP:36.6\n",
}

// Frames encodes samples into one chunk. It panics on a sample that cannot be
// encoded.
func Frames(samples ...sample.Sample) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		frame, err := wire.Encode(s)
		if err != nil {
			panic(err)
		}
		buf.Write(frame)
	}
	return buf.Bytes()
}

// Wearer returns n heart-rate readings at bpm interleaved with n acceleration
// readings whose magnitude is roughly movement.
func Wearer(n int, bpm, movement float64) []sample.Sample {
	out := make([]sample.Sample, 0, 2*n)
	for i := 0; i < n; i++ {
		out = append(out, sample.NewHeartRate(bpm), sample.NewAcceleration(0, 0, movement))
	}
	return out
}
