package domain

import "fmt"

// DistributionJob is the top-level unit of work: one artifact, one
// credential, one ordered set of hosts. It is created once per
// invocation and immutable after credential resolution and artifact
// preparation; host pipelines share it read-only.
type DistributionJob struct {
	ID         string
	Image      string
	Namespace  string
	Hosts      []Host
	SSH        SSHConfig
	Credential Credential
	Artifact   Artifact
}

// Validate checks the caller-provided parts of the job. It fails fast,
// before any local preparation.
func (j DistributionJob) Validate() error {
	if j.Image == "" {
		return fmt.Errorf("%w: image identifier is required", ErrInvalidArgument)
	}
	if len(j.Hosts) == 0 {
		return fmt.Errorf("%w: at least one target host is required", ErrInvalidArgument)
	}
	if j.Namespace == "" {
		return fmt.Errorf("%w: runtime namespace is required", ErrInvalidArgument)
	}
	return nil
}
