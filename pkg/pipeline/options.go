package pipeline

import (
	"github.com/willbeason/loan-prep/pkg/features"
	"github.com/willbeason/loan-prep/pkg/missing"
	"log/slog"
	"time"
)

// DefaultIssueCutoff excludes loans issued during the 2008-2009 recession.
var DefaultIssueCutoff = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

type Options struct {
	// Sentinel replaces every missing value after flagging. Nil means
	// missing.DefaultSentinel.
	Sentinel *float64

	// IssueCutoff is the earliest issue month kept. The zero time means
	// DefaultIssueCutoff.
	IssueCutoff time.Time

	// StrictTerm rejects terms other than "36 months" and "60 months" instead
	// of reading them as 60.
	StrictTerm bool

	// Parallel coerces independent columns concurrently.
	Parallel bool

	// Enricher derives features after imputation. Nil means features.None.
	Enricher features.Enricher

	// Logger receives one line per stage. Nil means slog.Default().
	Logger *slog.Logger

	// Recorder, if set, observes every stage and the run outcome.
	Recorder Recorder

	// RunID tags log lines; one is generated when empty.
	RunID string
}

func DefaultOptions() Options {
	featureOpts := features.DefaultOptions()
	featureOpts.Sentinel = missing.DefaultSentinel

	return Options{
		Sentinel:    Sentinel(missing.DefaultSentinel),
		IssueCutoff: DefaultIssueCutoff,
		Enricher:    features.NewGenerator(featureOpts),
	}
}

// Sentinel returns a pointer to v for Options.Sentinel.
func Sentinel(v float64) *float64 {
	return &v
}

func (o Options) sentinel() float64 {
	if o.Sentinel == nil {
		return missing.DefaultSentinel
	}
	return *o.Sentinel
}

func (o Options) issueCutoff() time.Time {
	if o.IssueCutoff.IsZero() {
		return DefaultIssueCutoff
	}
	return o.IssueCutoff
}

// StageStat describes one completed stage.
type StageStat struct {
	Name     string
	RowsIn   int64
	RowsOut  int64
	Columns  int
	Duration time.Duration
}

// Recorder observes pipeline progress, for example to export metrics.
type Recorder interface {
	ObserveStage(stat StageStat)
	ObserveRun(duration time.Duration, err error)
}
