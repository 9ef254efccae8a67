package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/sample"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		sample   sample.Sample
		expected string
	}{
		{"heart rate one decimal", sample.NewHeartRate(72.46), "HR:72.5\n"},
		{"heart rate integer", sample.NewHeartRate(90), "HR:90.0\n"},
		{"acceleration two decimals", sample.NewAcceleration(0.123, -9.806, 1), "ACC:0.12,-9.81,1.00\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.sample)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestEncode_Invalid(t *testing.T) {
	_, err := Encode(sample.Sample{})
	assert.True(t, errors.IsInvalid(err))

	_, err = Encode(sample.NewHeartRate(nan()))
	assert.ErrorIs(t, err, errors.ErrMalformed)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		expected sample.Sample
	}{
		{"heart rate", "HR:72.5", sample.NewHeartRate(72.5)},
		{"heart rate with delimiter", "HR:88.0\n", sample.NewHeartRate(88)},
		{"carriage return", "HR:60.1\r\n", sample.NewHeartRate(60.1)},
		{"whitespace around number", "HR: 75.0 ", sample.NewHeartRate(75)},
		{"acceleration", "ACC:1.00,2.00,3.00", sample.NewAcceleration(1, 2, 3)},
		{"negative acceleration", "ACC:-0.50,9.81,-2.25\n", sample.NewAcceleration(-0.5, 9.81, -2.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	frames := []string{
		"",
		"HR",
		"HR:",
		"HR:abc",
		"HR:NaN",
		"HR:+Inf",
		"HR:1:2",
		"hr:72.0",
		"TEMP:36.6",
		"ACC:1,2",
		"ACC:1,2,3,4",
		"ACC:1,x,3",
		"ACC:1,,3",
		":72.0",
	}

	for _, frame := range frames {
		t.Run(frame, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrMalformed)
			assert.True(t, errors.IsInvalid(err))

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.NotEmpty(t, de.Reason)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	samples := []sample.Sample{
		sample.NewHeartRate(0),
		sample.NewHeartRate(61.3),
		sample.NewHeartRate(180.9),
		sample.NewAcceleration(0, 0, 0),
		sample.NewAcceleration(-12.34, 5.67, 9.81),
	}

	for _, s := range samples {
		t.Run(s.String(), func(t *testing.T) {
			encoded, err := Encode(s)
			require.NoError(t, err)
			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, s.Kind, decoded.Kind)
			assert.InDelta(t, s.BPM, decoded.BPM, 0.05)
			assert.InDelta(t, s.X, decoded.X, 0.005)
			assert.InDelta(t, s.Y, decoded.Y, 0.005)
			assert.InDelta(t, s.Z, decoded.Z, 0.005)
		})
	}
}

func TestRoundTrip_Rounds(t *testing.T) {
	encoded, err := Encode(sample.NewHeartRate(72.46))
	require.NoError(t, err)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, 72.5, decoded.BPM)
}
