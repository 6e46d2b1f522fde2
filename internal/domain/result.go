package domain

import "time"

// StageOutcome is the terminal state of one pipeline stage on one host.
type StageOutcome string

const (
	StageSuccess StageOutcome = "success"
	StageFailure StageOutcome = "failure"

	// StageSkipped marks stages that never ran because an earlier
	// required stage failed. A host never reaches verification without
	// a recorded load attempt.
	StageSkipped StageOutcome = "skipped"

	// VerifyFound and VerifyNotFound are the verifier's outcomes. Query
	// failure and a genuine miss collapse into not-found: verification
	// is a best-effort confirmation, not a correctness gate.
	VerifyFound    StageOutcome = "found"
	VerifyNotFound StageOutcome = "not-found"
)

// HostResult is the per-host terminal record of the pipeline. Created by
// the host workflow, consumed by the reporter and the run-record store,
// never mutated afterwards.
type HostResult struct {
	Host     HostID
	Transfer StageOutcome
	Load     StageOutcome
	Verify   StageOutcome

	// Verified holds the matched listing entry when Verify == found.
	Verified VerifiedImage

	// Detail carries the first failing stage's diagnostic, for the
	// per-host narration. Never contains secret material.
	Detail string
}

// Succeeded reports whether every stage completed: transferred, loaded,
// and confirmed present in the runtime listing.
func (r HostResult) Succeeded() bool {
	return r.Transfer == StageSuccess && r.Load == StageSuccess && r.Verify == VerifyFound
}

// RunRecord is the persisted form of one host outcome within a job.
type RunRecord struct {
	JobID     string
	Host      HostID
	Image     string
	Result    HostResult
	UpdatedAt time.Time
}

// Report aggregates a finished job: one result per host identity plus
// the order hosts were given in, so rendering is stable regardless of
// completion order.
type Report struct {
	JobID   string
	Image   string
	Hosts   []HostID
	Results map[HostID]HostResult
	Stats   ArtifactStats
}

// Succeeded counts hosts whose whole pipeline succeeded.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded() {
			n++
		}
	}
	return n
}

// StageCounts tallies outcomes for one stage across all hosts.
func (r Report) StageCounts(stage func(HostResult) StageOutcome) map[StageOutcome]int {
	counts := make(map[StageOutcome]int)
	for _, res := range r.Results {
		counts[stage(res)]++
	}
	return counts
}
