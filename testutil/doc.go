// Package testutil provides fixtures and in-memory collaborators for moodlink
// tests.
//
// MockNATSClient stands in for natsclient.Client wherever only Publish and
// Subscribe are needed, so sinks can be tested without a NATS server. It
// records every message per subject and can be told to fail publishes.
//
// SliceSource is a sensor.Source that emits a fixed list of samples.
//
// The frame fixtures cover well-formed and malformed wire frames; Frames encodes
// samples into one contiguous chunk as a sender would write them.
package testutil
