// Package ui delivers status and recommendation updates to the presentation layer.
//
// Producers call Dispatcher.Post from any goroutine. A single worker drains the
// queue and hands each Update to the Sink, so the sink never sees concurrent
// calls and updates from one producer arrive in the order they were posted.
// Post never blocks; when the queue is full the update is dropped.
//
// Sinks:
//   - LogSink writes updates to a slog.Logger.
//   - NATSSink publishes JSON updates on a NATS subject.
//   - ChanSink forwards updates to a channel, for tests and embedding.
package ui
