package indexer

import (
	"encoding/json"
	"io"
	"time"

	"gitlab.com/tozd/go/errors"
)

// Phase is the wall time one step of Order took. File is set for the read
// of a single source; Offset is measured from the start of the run.
type Phase struct {
	Name     string
	File     string
	Status   string
	Offset   time.Duration
	Duration time.Duration
}

type stopwatch struct {
	start  time.Time
	phases []Phase
}

func (s *stopwatch) mark(name, status string, from time.Time) {
	s.phases = append(s.phases, Phase{
		Name:     name,
		Status:   status,
		Offset:   from.Sub(s.start),
		Duration: time.Since(from),
	})
}

// reads adds one phase per source in input order.
func (s *stopwatch) reads(sources []Source) {
	for _, src := range sources {
		status := "read"
		if src.Err != nil {
			status = "unreadable"
		}
		s.phases = append(s.phases, Phase{
			Name:     "load",
			File:     src.Path,
			Status:   status,
			Offset:   src.Read.Sub(s.start),
			Duration: src.Elapsed,
		})
	}
}

type timingLine struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
}

// WriteTimings writes the phases of res as JSON lines.
func WriteTimings(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	for _, p := range res.Phases {
		kind := "stage"
		if p.File != "" {
			kind = "file"
		}
		line := timingLine{
			Phase:      p.Name,
			Kind:       kind,
			File:       p.File,
			Status:     p.Status,
			StartMS:    milliseconds(p.Offset),
			DurationMS: milliseconds(p.Duration),
		}
		if err := enc.Encode(line); err != nil {
			return errors.Errorf("writing timings: %w", err)
		}
	}
	return nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
