package app

import (
	"time"

	"github.com/c360/moodlink/aggregate"
	"github.com/c360/moodlink/emotion"
	"github.com/c360/moodlink/metric"
	"github.com/c360/moodlink/recommend"
	"github.com/c360/moodlink/sample"
	"github.com/c360/moodlink/ui"
)

// Pipeline turns received samples into UI updates. It is driven by a single
// goroutine.
type Pipeline struct {
	aggregator *aggregate.Aggregator
	classifier emotion.Classifier
	metrics    *metric.Metrics
}

// NewPipeline creates a Pipeline. metrics may be nil.
func NewPipeline(agg *aggregate.Aggregator, classifier emotion.Classifier, metrics *metric.Metrics) *Pipeline {
	return &Pipeline{aggregator: agg, classifier: classifier, metrics: metrics}
}

// Process ingests s and returns the update to show. raw is the frame text.
func (p *Pipeline) Process(s sample.Sample, raw string) ui.Update {
	start := time.Now()
	p.aggregator.Ingest(s)
	snap := p.aggregator.Snapshot()

	if p.classifier.Mode() == emotion.ModeWindowed && !snap.HasEnoughData {
		return ui.Update{Diagnostic: InsufficientData, State: emotion.Unknown, Timestamp: time.Now()}
	}

	state := p.classifier.Classify(snap)
	p.metrics.RecordClassification(state.String(), time.Since(start).Seconds())

	rec := recommend.Map(state)
	return ui.RecommendationUpdate(Diagnostic(raw, state, rec), rec)
}

// Reset clears the aggregation windows.
func (p *Pipeline) Reset() {
	p.aggregator.Reset()
}
