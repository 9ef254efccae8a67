// Package stream turns a connected link into decoded samples.
//
// A Stream reads from a link.Manager into a wire.Decoder and hands each complete
// frame to its handlers in arrival order. Malformed frames are reported and
// dropped; the loop keeps reading. Run returns once the link leaves Connected or
// the context is cancelled.
package stream
