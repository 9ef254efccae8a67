// Package moodlink streams wristband samples over a point-to-point link,
// classifies the wearer's emotional state and maps it to a recommendation.
//
// # Architecture
//
// A sender and a receiver share one link. The sender encodes each sample as a
// newline-delimited text frame; the receiver reassembles frames, keeps sliding
// windows of heart rate and movement, and classifies:
//
//	┌─────────────┐   HR:72.0\n          ┌─────────────┐
//	│   sensor    │   ACC:0.10,0.20,9.81 │   stream    │  frame reassembly
//	│   Source    │ ───────────────────→ │  (wire)     │  malformed frames dropped
//	└─────────────┘      link.Manager    └──────┬──────┘
//	                  (tcp | websocket)         ↓
//	                                     ┌─────────────┐
//	                                     │  aggregate  │  sliding windows,
//	                                     │             │  mean and std deviation
//	                                     └──────┬──────┘
//	                                            ↓
//	                                     ┌─────────────┐
//	                                     │   emotion   │  CALM, NORMAL,
//	                                     │  recommend  │  STRESSED, ANXIOUS
//	                                     └──────┬──────┘
//	                                            ↓
//	                                     ┌─────────────┐
//	                                     │     ui      │  single consumer,
//	                                     │ Dispatcher  │  log and NATS sinks
//	                                     └─────────────┘
//
// # Link lifecycle
//
// link.Manager owns the connection. It moves through Disconnected, Connecting,
// Connected, Retrying(n) and Failed. Establishment is retried a fixed number of
// times with a fixed delay; after the last failure the manager is Failed and
// stays there until Reset. A permission denial from the availability gate is
// never retried. Every change is posted to the UI as status text.
//
// # Packages
//
//   - app: wires a configured process and owns its lifecycle
//   - link: connection state machine and the tcp and websocket transports
//   - wire: frame codec and stream decoder
//   - stream: read loop from a link into decoded samples
//   - aggregate: sample windows and their statistics
//   - emotion: windowed and instantaneous classifiers
//   - recommend: state to recommendation mapping
//   - ui: update dispatch and sinks
//   - sensor: sample sources for the sender
//   - config: YAML configuration with environment overrides
//   - metric, health: Prometheus metrics and health aggregation
//   - natsclient: NATS connection used by the NATS sink
//   - errors: classified errors shared by every package
//
// The moodlink command in cmd/moodlink runs either role.
package moodlink
