package domain

import "context"

// RemoteOutput is the captured result of one remote command. A non-zero
// ExitCode is not a transport error; callers decide what it means for
// their stage.
type RemoteOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Transport is the port through which the pipeline moves bytes to a host
// and runs commands on it. Implementations own connection setup, the
// per-operation timeout, and safe rendering of [RemoteCommand] argv for
// the remote shell. The orchestrator does not implement SSH; it consumes
// this.
type Transport interface {
	// Copy places the local file at the remote path, creating or
	// truncating it.
	Copy(ctx context.Context, host Host, localPath, remotePath string) error

	// Run executes one command. It returns an error only for
	// transport-level failures (connect, auth, session); a command that
	// ran and exited non-zero comes back with err == nil and the exit
	// code set.
	Run(ctx context.Context, host Host, cmd RemoteCommand) (RemoteOutput, error)
}

// ArtifactExporter is the port to the external image export and
// compression collaborators: it turns an image identifier into a
// compressed archive at destPath and reports what it wrote.
type ArtifactExporter interface {
	Export(ctx context.Context, image, destPath string) (Artifact, error)
}

// RunRecordRepository persists per-host outcomes per job. Recording is
// best-effort telemetry: the pipeline logs and continues when a write
// fails.
type RunRecordRepository interface {
	Put(ctx context.Context, rec RunRecord) error
	Get(ctx context.Context, jobID string, host HostID) (RunRecord, error)
	ListByJob(ctx context.Context, jobID string) ([]RunRecord, error)
	DeleteByJob(ctx context.Context, jobID string) error
}

// ReportNotifier pushes the finished report to an external sink. Failure
// to notify never changes the job outcome.
type ReportNotifier interface {
	Notify(ctx context.Context, report Report) error
}
