package types

import "time"

// a report is the outcome of one two-participant harness run
// Counter must equal Expected (2 * Target) for the run to pass
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Target   int `json:"target"`
	Counter  int `json:"counter"`
	Expected int `json:"expected"`

	Acquisitions [2]int `json:"acquisitions"` //indexed by Identity.Index()
	Yields       [2]int `json:"yields"`       //scheduler yields spent spinning

	OccupancyChecked    bool `json:"occupancy_checked"`
	OccupancyViolations int  `json:"occupancy_violations"`

	Elapsed time.Duration `json:"elapsed"` //monotonic
}

// reports whether the run observed neither lost updates nor overlapping critical sections
func (r *Report) Passed() bool {
	return r.Counter == r.Expected && r.OccupancyViolations == 0
}
