package wire

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/sample"
)

// Frame keys and delimiters.
const (
	KeyHeartRate    = "HR"
	KeyAcceleration = "ACC"

	Delimiter      = '\n'
	keySeparator   = ":"
	fieldSeparator = ","

	heartRatePrecision    = 1
	accelerationPrecision = 2
)

// DecodeError describes a frame that could not be decoded. It unwraps to
// errors.ErrMalformed.
type DecodeError struct {
	Frame  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed frame %q: %s", e.Frame, e.Reason)
}

// Unwrap returns errors.ErrMalformed.
func (e *DecodeError) Unwrap() error {
	return errors.ErrMalformed
}

func malformed(frame, format string, args ...any) error {
	return &DecodeError{Frame: frame, Reason: fmt.Sprintf(format, args...)}
}

// Encode renders s as one delimited frame.
func Encode(s sample.Sample) ([]byte, error) {
	switch s.Kind {
	case sample.KindHeartRate:
		if !finite(s.BPM) {
			return nil, errors.WrapInvalid(errors.ErrMalformed, "wire", "Encode", "non-finite heart rate")
		}
		buf := make([]byte, 0, 12)
		buf = append(buf, KeyHeartRate+keySeparator...)
		buf = strconv.AppendFloat(buf, s.BPM, 'f', heartRatePrecision, 64)
		return append(buf, Delimiter), nil

	case sample.KindAcceleration:
		if !finite(s.X) || !finite(s.Y) || !finite(s.Z) {
			return nil, errors.WrapInvalid(errors.ErrMalformed, "wire", "Encode", "non-finite acceleration")
		}
		buf := make([]byte, 0, 32)
		buf = append(buf, KeyAcceleration+keySeparator...)
		buf = strconv.AppendFloat(buf, s.X, 'f', accelerationPrecision, 64)
		buf = append(buf, fieldSeparator...)
		buf = strconv.AppendFloat(buf, s.Y, 'f', accelerationPrecision, 64)
		buf = append(buf, fieldSeparator...)
		buf = strconv.AppendFloat(buf, s.Z, 'f', accelerationPrecision, 64)
		return append(buf, Delimiter), nil

	default:
		return nil, errors.WrapInvalid(errors.ErrMalformed, "wire", "Encode", fmt.Sprintf("unknown sample kind %d", s.Kind))
	}
}

// Decode parses a single frame. The trailing delimiter is optional.
func Decode(frame []byte) (sample.Sample, error) {
	text := strings.TrimSuffix(string(frame), string(Delimiter))
	text = strings.TrimSuffix(text, "\r")

	key, payload, ok := strings.Cut(text, keySeparator)
	if !ok {
		return sample.Sample{}, malformed(text, "missing %q separator", keySeparator)
	}

	switch key {
	case KeyHeartRate:
		bpm, err := parseField(payload)
		if err != nil {
			return sample.Sample{}, malformed(text, "heart rate: %v", err)
		}
		return sample.NewHeartRate(bpm), nil

	case KeyAcceleration:
		fields := strings.Split(payload, fieldSeparator)
		if len(fields) != 3 {
			return sample.Sample{}, malformed(text, "acceleration needs 3 fields, got %d", len(fields))
		}
		var axes [3]float64
		for i, f := range fields {
			v, err := parseField(f)
			if err != nil {
				return sample.Sample{}, malformed(text, "acceleration field %d: %v", i, err)
			}
			axes[i] = v
		}
		return sample.NewAcceleration(axes[0], axes[1], axes[2]), nil

	default:
		return sample.Sample{}, malformed(text, "unknown key %q", key)
	}
}

func parseField(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, fmt.Errorf("empty field")
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", field)
	}
	if !finite(v) {
		return 0, fmt.Errorf("not finite: %q", field)
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
