// Package buffer provides a generic, fixed-capacity FIFO ring used for sliding windows.
//
// A Ring keeps at most Capacity items. When full, a push evicts the oldest item so
// the ring always holds the most recent values.
//
// Statistics are always collected. Prometheus metrics are optional via WithMetrics.
package buffer
