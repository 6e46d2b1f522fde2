package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

// DistributeInput is the caller-provided input for one distribution run.
type DistributeInput struct {
	Image     string
	Hosts     []domain.Host
	Namespace string
	SSH       domain.SSHConfig
	Policy    domain.CredentialPolicy
}

// DistributionService runs the whole job: resolve the credential once,
// prepare the artifact once, then drive one pipeline per host and
// aggregate the outcomes. Hosts are independent fault domains: one
// host's failure never aborts the rest of the fleet.
type DistributionService struct {
	Exporter domain.ArtifactExporter
	Engine   domain.WorkflowEngine
	Records  domain.RunRecordRepository
	Notifier domain.ReportNotifier
	Prompter domain.SecretPrompter
	Secrets  domain.SecretStore
	Log      logrus.FieldLogger

	// Transport is shared read-only by all host pipelines.
	Transport domain.Transport

	// Workers bounds concurrent host pipelines. Zero means one at a
	// time, the canonical sequential schedule.
	Workers int

	// WorkDir is where the compressed artifact is staged locally.
	// Empty means the system temp directory.
	WorkDir string

	Now func() time.Time
}

// Distribute executes one job end to end and returns the aggregate
// report. The returned error is job-fatal only: validation or local
// preparation failure. Per-host failures live inside the report.
func (s *DistributionService) Distribute(ctx context.Context, in DistributeInput) (domain.Report, error) {
	job := domain.DistributionJob{
		ID:        uuid.NewString(),
		Image:     in.Image,
		Namespace: in.Namespace,
		Hosts:     in.Hosts,
		SSH:       in.SSH,
	}
	if err := job.Validate(); err != nil {
		return domain.Report{}, err
	}

	cred, err := domain.ResolveCredential(in.Policy, s.Prompter, s.Secrets)
	if err != nil {
		return domain.Report{}, err
	}
	job.Credential = cred
	defer cred.Zero()

	log := s.log().WithFields(logrus.Fields{"job": job.ID, "image": job.Image})
	log.WithField("escalation", cred.String()).Info("credential resolved")

	localPath := filepath.Join(s.workDir(), domain.SanitizeImageName(job.Image)+".tar.gz")
	art, err := s.Exporter.Export(ctx, job.Image, localPath)
	if err != nil {
		return domain.Report{}, fmt.Errorf("%w: %v", domain.ErrExportFailed, err)
	}
	job.Artifact = art
	// The staged artifact is shared read-only by every pipeline; it is
	// removed only after all of them have finished or been abandoned.
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnf("remove staged artifact: %v", rmErr)
		}
	}()

	log.WithFields(logrus.Fields{
		"raw_bytes":        art.Stats.RawBytes,
		"compressed_bytes": art.Stats.CompressedBytes,
	}).Infof("artifact ready, %.1f%% saved", art.Stats.SavedPercent())

	wf := &domain.HostWorkflow{
		Job:       job,
		Transport: s.Transport,
		Records:   s.Records,
		Log:       s.Log,
		Now:       s.Now,
	}
	runner, err := s.Engine.HostRunner(wf)
	if err != nil {
		return domain.Report{}, fmt.Errorf("create host runner: %w", err)
	}

	report := domain.Report{
		JobID:   job.ID,
		Image:   job.Image,
		Results: s.runHosts(ctx, runner, job.Hosts),
		Stats:   art.Stats,
	}
	// Duplicate hosts share one result slot; list each identity once so
	// the matrix and the counts agree.
	seen := make(map[domain.HostID]struct{}, len(job.Hosts))
	for _, h := range job.Hosts {
		if _, dup := seen[h.ID()]; dup {
			continue
		}
		seen[h.ID()] = struct{}{}
		report.Hosts = append(report.Hosts, h.ID())
	}

	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, report); err != nil {
			log.Warnf("report notification: %v", err)
		}
	}

	return report, nil
}

// runHosts fans pipelines out over the worker pool and collects results
// keyed by host identity, independent of completion order. Cancellation
// stops launching new pipelines; hosts that never started are reported
// as skipped, never silently dropped.
func (s *DistributionService) runHosts(ctx context.Context, runner domain.HostRunner, hosts []domain.Host) map[domain.HostID]domain.HostResult {
	var (
		mu      sync.Mutex
		results = make(map[domain.HostID]domain.HostResult, len(hosts))
	)

	var g errgroup.Group
	g.SetLimit(s.workers())

	for _, host := range hosts {
		if ctx.Err() != nil {
			mu.Lock()
			results[host.ID()] = domain.HostResult{
				Host:     host.ID(),
				Transfer: domain.StageSkipped,
				Load:     domain.StageSkipped,
				Verify:   domain.StageSkipped,
				Detail:   "job cancelled before this host started",
			}
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			res := s.runHost(ctx, runner, host)
			mu.Lock()
			results[host.ID()] = res
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// runHost runs one pipeline. Engine-level failures are folded into a
// transfer-failure result so the host still appears in the report.
func (s *DistributionService) runHost(ctx context.Context, runner domain.HostRunner, host domain.Host) domain.HostResult {
	failed := func(err error) domain.HostResult {
		return domain.HostResult{
			Host:     host.ID(),
			Transfer: domain.StageFailure,
			Load:     domain.StageSkipped,
			Verify:   domain.StageSkipped,
			Detail:   err.Error(),
		}
	}

	handle, err := runner.Run(ctx, host)
	if err != nil {
		return failed(fmt.Errorf("start pipeline: %w", err))
	}
	res, err := handle.AwaitResult(ctx)
	if err != nil {
		return failed(fmt.Errorf("pipeline: %w", err))
	}
	return res
}

func (s *DistributionService) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return 1
}

func (s *DistributionService) workDir() string {
	if s.WorkDir != "" {
		return s.WorkDir
	}
	return os.TempDir()
}

func (s *DistributionService) log() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}
