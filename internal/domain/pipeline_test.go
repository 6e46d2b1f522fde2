package domain_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

// syncRunner runs activities inline (no durability).
type syncRunner struct {
	ctx context.Context
}

func (s *syncRunner) ID() string               { return "test-sync" }
func (s *syncRunner) Context() context.Context { return s.ctx }
func (s *syncRunner) Run(activity domain.Activity[any, any], in any) (any, error) {
	return activity.Run(s.ctx, in)
}

// recordingRunner runs activities and records their names in order so
// tests can assert execution sequence.
type recordingRunner struct {
	delegate domain.DurableRunner
	names    []string
}

func (r *recordingRunner) ID() string               { return r.delegate.ID() }
func (r *recordingRunner) Context() context.Context { return r.delegate.Context() }
func (r *recordingRunner) Run(activity domain.Activity[any, any], in any) (any, error) {
	r.names = append(r.names, activity.Name())
	return r.delegate.Run(activity, in)
}

// fakeTransport simulates a fleet. Commands are matched on their argv
// shape, the way the real runtime collaborator is invoked.
type fakeTransport struct {
	mu          sync.Mutex
	unreachable map[domain.HostID]bool
	rejectSudo  map[domain.HostID]bool
	listing     string
	checksum    string
	commands    []string
}

func (f *fakeTransport) Copy(_ context.Context, host domain.Host, _, _ string) error {
	if f.unreachable[host.ID()] {
		return fmt.Errorf("dial %s: connection refused", host.Address)
	}
	return nil
}

func (f *fakeTransport) Run(_ context.Context, host domain.Host, cmd domain.RemoteCommand) (domain.RemoteOutput, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd.String())
	f.mu.Unlock()

	if f.unreachable[host.ID()] {
		return domain.RemoteOutput{}, fmt.Errorf("dial %s: connection refused", host.Address)
	}

	switch cmd.Argv[0] {
	case "sha256sum":
		return domain.RemoteOutput{Stdout: f.checksum + "  /tmp/staged.tar.gz\n"}, nil
	case "sudo":
		if f.rejectSudo[host.ID()] {
			return domain.RemoteOutput{ExitCode: 1, Stderr: "sudo: a password is required"}, nil
		}
		if strings.Contains(cmd.String(), "'ls'") {
			return domain.RemoteOutput{Stdout: f.listing}, nil
		}
		return domain.RemoteOutput{}, nil
	case "ctr":
		if strings.Contains(cmd.String(), "'ls'") {
			return domain.RemoteOutput{Stdout: f.listing}, nil
		}
		return domain.RemoteOutput{}, nil
	default: // gunzip, rm
		return domain.RemoteOutput{}, nil
	}
}

// memoryRecords is an in-memory RunRecordRepository.
type memoryRecords struct {
	mu      sync.Mutex
	records []domain.RunRecord
}

func (m *memoryRecords) Put(_ context.Context, rec domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryRecords) Get(_ context.Context, jobID string, host domain.HostID) (domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.JobID == jobID && rec.Host == host {
			return rec, nil
		}
	}
	return domain.RunRecord{}, domain.ErrNotFound
}

func (m *memoryRecords) ListByJob(_ context.Context, jobID string) ([]domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RunRecord
	for _, rec := range m.records {
		if rec.JobID == jobID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryRecords) DeleteByJob(_ context.Context, _ string) error { return nil }

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

const nginxListing = `REF TYPE DIGEST SIZE PLATFORMS LABELS
docker.io/library/nginx:latest type sha256:abc 56.3 MiB linux/amd64 -
`

func testJob(cred domain.Credential) domain.DistributionJob {
	return domain.DistributionJob{
		ID:         "j1",
		Image:      "nginx:latest",
		Namespace:  "k8s.io",
		Credential: cred,
		Artifact: domain.Artifact{
			Image:     "nginx:latest",
			LocalPath: "/work/nginx_latest.tar.gz",
			Digest:    digest.FromString("artifact-bytes"),
		},
	}
}

func runHost(t *testing.T, wf *domain.HostWorkflow, host domain.Host) (domain.HostResult, *recordingRunner) {
	t.Helper()
	recorder := &recordingRunner{delegate: &syncRunner{ctx: context.Background()}}
	res, err := wf.Run(recorder, host)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res, recorder
}

func TestHostWorkflow_AllStagesSucceed(t *testing.T) {
	job := testJob(domain.NoEscalation())
	transport := &fakeTransport{
		listing:  nginxListing,
		checksum: job.Artifact.Digest.Encoded(),
	}
	records := &memoryRecords{}
	wf := &domain.HostWorkflow{Job: job, Transport: transport, Records: records, Log: quietLogger()}

	res, _ := runHost(t, wf, domain.Host{Address: "h1"})

	if res.Transfer != domain.StageSuccess || res.Load != domain.StageSuccess || res.Verify != domain.VerifyFound {
		t.Fatalf("got %s/%s/%s", res.Transfer, res.Load, res.Verify)
	}
	if res.Verified.Ref != "docker.io/library/nginx:latest" || res.Verified.Size != "56.3 MiB" {
		t.Errorf("Verified = %+v", res.Verified)
	}

	rec, err := records.Get(context.Background(), "j1", "h1")
	if err != nil {
		t.Fatalf("outcome not recorded: %v", err)
	}
	if !rec.Result.Succeeded() {
		t.Errorf("recorded result = %+v", rec.Result)
	}
}

func TestHostWorkflow_TransferFailureSkipsLaterStages(t *testing.T) {
	job := testJob(domain.NoEscalation())
	transport := &fakeTransport{unreachable: map[domain.HostID]bool{"h1": true}}
	wf := &domain.HostWorkflow{Job: job, Transport: transport, Log: quietLogger()}

	res, recorder := runHost(t, wf, domain.Host{Address: "h1"})

	if res.Transfer != domain.StageFailure {
		t.Errorf("Transfer = %s, want failure", res.Transfer)
	}
	if res.Load != domain.StageSkipped || res.Verify != domain.StageSkipped {
		t.Errorf("Load/Verify = %s/%s, want skipped/skipped", res.Load, res.Verify)
	}
	for _, name := range recorder.names {
		if name == "load-image" || name == "verify-image" {
			t.Errorf("%s must not run after a failed transfer", name)
		}
	}
}

func TestHostWorkflow_VerifyRunsEvenWhenLoadFails(t *testing.T) {
	job := testJob(domain.PasswordlessEscalation())
	transport := &fakeTransport{
		rejectSudo: map[domain.HostID]bool{"h1": true},
		checksum:   job.Artifact.Digest.Encoded(),
	}
	wf := &domain.HostWorkflow{Job: job, Transport: transport, Log: quietLogger()}

	res, recorder := runHost(t, wf, domain.Host{Address: "h1"})

	if res.Load != domain.StageFailure {
		t.Errorf("Load = %s, want failure", res.Load)
	}
	if res.Verify != domain.VerifyNotFound {
		t.Errorf("Verify = %s, want not-found", res.Verify)
	}
	verified := false
	for _, name := range recorder.names {
		if name == "verify-image" {
			verified = true
		}
	}
	if !verified {
		t.Error("verify-image must run even when the load failed")
	}
}

func TestHostWorkflow_DigestMismatchIsTransferFailure(t *testing.T) {
	job := testJob(domain.NoEscalation())
	transport := &fakeTransport{checksum: "deadbeef"}
	wf := &domain.HostWorkflow{Job: job, Transport: transport, Log: quietLogger()}

	res, _ := runHost(t, wf, domain.Host{Address: "h1"})

	if res.Transfer != domain.StageFailure {
		t.Errorf("Transfer = %s, want failure on digest mismatch", res.Transfer)
	}
	if res.Load != domain.StageSkipped {
		t.Errorf("Load = %s, want skipped", res.Load)
	}
}

func TestHostWorkflow_SecretNeverInRenderedCommands(t *testing.T) {
	const secret = "swordfish"
	job := testJob(domain.PasswordEscalation([]byte(secret)))
	transport := &fakeTransport{
		listing:  nginxListing,
		checksum: job.Artifact.Digest.Encoded(),
	}
	wf := &domain.HostWorkflow{Job: job, Transport: transport, Log: quietLogger()}

	runHost(t, wf, domain.Host{Address: "h1"})

	for _, cmd := range transport.commands {
		if strings.Contains(cmd, secret) {
			t.Fatalf("secret visible in rendered command: %s", cmd)
		}
	}
}
