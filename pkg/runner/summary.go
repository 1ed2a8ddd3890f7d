package runner

import (
	"fmt"
	"sort"
	"time"

	"github.com/sdcio/flood-harness/pkg/flood"
)

// Summary aggregates one unit's outcomes after a flood.
type Summary struct {
	Unit      string
	Workers   int
	Successes int
	Failures  int
	// LastValue is the most recent successful result any worker produced.
	LastValue string
	// LastErr is the most recent error any worker retained.
	LastErr error
	Elapsed time.Duration
}

func summarize(res map[string][]flood.Outcome[string], elapsed time.Duration) []*Summary {
	sums := make([]*Summary, 0, len(res))
	for name, outs := range res {
		s := &Summary{Unit: name, Workers: len(outs), Elapsed: elapsed}
		for _, o := range outs {
			s.Successes += o.Successes
			s.Failures += o.Failures
			if o.OK() {
				s.LastValue = o.Value
			}
			if o.Err != nil {
				s.LastErr = o.Err
			}
		}
		sums = append(sums, s)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].Unit < sums[j].Unit })
	return sums
}

func (s *Summary) String() string {
	return fmt.Sprintf("flood %q: workers=%d, ok=%d, failed=%d, took=%s",
		s.Unit, s.Workers, s.Successes, s.Failures, s.Elapsed.Round(time.Millisecond))
}
