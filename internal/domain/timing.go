package domain

import "time"

// Stage names recorded by the search pipeline, in execution order.
const (
	StageImage          = "Image"
	StageMemory         = "Memory"
	StageClassification = "Classification"
	StageEmbedding      = "Embedding"
	StageDB             = "DB"
	StageTotal          = "Total"
)

// StageTiming is one named pipeline stage and its duration.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Timings is an insertion-ordered sequence of stage durations. Only stages
// that actually executed are present; the last entry is always Total.
type Timings []StageTiming

// Record appends a stage duration.
func (t *Timings) Record(stage string, d time.Duration) {
	*t = append(*t, StageTiming{Stage: stage, Duration: d})
}

// Get returns the duration for a stage and whether it was recorded.
func (t Timings) Get(stage string) (time.Duration, bool) {
	for _, st := range t {
		if st.Stage == stage {
			return st.Duration, true
		}
	}
	return 0, false
}

// Total returns the recorded Total duration, or zero if not yet recorded.
func (t Timings) Total() time.Duration {
	d, _ := t.Get(StageTotal)
	return d
}
