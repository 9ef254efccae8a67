// Package wire encodes wristband samples as text frames and decodes them back.
//
// # Frame format
//
// Each frame is a single line of ASCII text terminated by '\n':
//
//	HR:72.5
//	ACC:0.12,-9.81,0.40
//
// Heart rate is written with one decimal place and acceleration components with two.
// Decoding splits on the first ':' and tolerates a trailing "\r" and whitespace around
// numbers. Unknown keys, non-numeric or non-finite fields and acceleration frames with
// other than three fields are rejected with ErrMalformed.
//
// # Reassembly
//
// A stream transport delivers bytes in arbitrary chunks. Decoder buffers the partial
// tail of each chunk and yields frames only once their delimiter arrives, so a frame
// split across reads decodes the same as one read in a single call.
package wire
