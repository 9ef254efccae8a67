package wire

import (
	"bytes"

	"github.com/c360/moodlink/sample"
)

// MaxFrameSize bounds the bytes buffered while waiting for a delimiter.
const MaxFrameSize = 256

// Frame is the outcome of decoding one delimited line. Err is non-nil for a
// malformed frame, in which case Sample is the zero value.
type Frame struct {
	Sample sample.Sample
	Raw    string
	Err    error
}

// Decoder reassembles frames from a byte stream. It is not safe for concurrent use;
// each connection owns one Decoder.
type Decoder struct {
	buf []byte
	// discarding is set after an overlong line was reported; bytes are
	// dropped up to and including the next delimiter.
	discarding bool
}

// NewDecoder creates an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, MaxFrameSize)}
}

// Feed appends chunk to the reassembly buffer and returns every frame it
// completed, in arrival order. Empty lines are skipped. An unterminated tail
// longer than MaxFrameSize is reported as a malformed frame, and the rest of
// that line is discarded when its delimiter arrives.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if d.discarding {
		i := bytes.IndexByte(chunk, Delimiter)
		if i < 0 {
			return nil
		}
		d.discarding = false
		chunk = chunk[i+1:]
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		i := bytes.IndexByte(d.buf, Delimiter)
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(d.buf[:i], []byte{'\r'})
		if len(bytes.TrimSpace(line)) > 0 {
			frames = append(frames, decodeLine(line))
		}
		d.buf = d.buf[i+1:]
	}

	if len(d.buf) > MaxFrameSize {
		raw := string(d.buf[:MaxFrameSize]) + "..."
		frames = append(frames, Frame{Raw: raw, Err: malformed(raw, "no delimiter within %d bytes", MaxFrameSize)})
		d.buf = d.buf[:0]
		d.discarding = true
	}

	// Compact so the backing array does not grow with every chunk.
	if cap(d.buf) > 4*MaxFrameSize {
		d.buf = append(make([]byte, 0, MaxFrameSize), d.buf...)
	}
	return frames
}

// Pending returns the number of buffered bytes awaiting a delimiter.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset discards any partial frame.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.discarding = false
}

func decodeLine(line []byte) Frame {
	s, err := Decode(line)
	return Frame{Sample: s, Raw: string(line), Err: err}
}
