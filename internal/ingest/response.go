package ingest

import "net/http"

// Outcome is the result of one ingest subsystem.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response carries one Outcome per subsystem that took part in the request.
// A nil entry means that subsystem was not run.
type Response struct {
	Metrics  *Outcome `json:"metrics,omitempty"`
	Workouts *Outcome `json:"workouts,omitempty"`
}

// Status derives the HTTP status for a response: 200 when every subsystem
// that ran succeeded, 500 when all of them failed, 207 otherwise.
func (r Response) Status() int {
	var ran, failed int
	for _, o := range []*Outcome{r.Metrics, r.Workouts} {
		if o == nil {
			continue
		}
		ran++
		if !o.Success {
			failed++
		}
	}
	switch {
	case failed == 0:
		return http.StatusOK
	case failed == ran:
		return http.StatusInternalServerError
	default:
		return http.StatusMultiStatus
	}
}
