package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// HostWorkflow drives one host through transfer, load, and verification.
// Each stage is a named activity so the pipeline can run on a durable
// engine; stage failures become outcome values, not activity errors, so
// engines never retry what the job contract defines as single-attempt.
// The workflow body itself stays free of side effects; all narration
// happens inside activities, which run once even under replay.
//
// The job (including the credential) lives on the workflow struct, not in
// activity inputs: activity payloads may be persisted by a durable
// backend and must stay free of secret material.
type HostWorkflow struct {
	Job       DistributionJob
	Transport Transport
	Records   RunRecordRepository
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// Name identifies the workflow type to the engines.
func (w *HostWorkflow) Name() string { return "distribute-to-host" }

// TransferResult is the outcome of staging the artifact on a host.
type TransferResult struct {
	Delivered bool
	Detail    string
}

// LoadResult is the outcome of the remote decompress-import-cleanup chain.
type LoadResult struct {
	Loaded bool
	Detail string
}

// VerifyResult is the outcome of the runtime listing query.
type VerifyResult struct {
	Found bool
	Image VerifiedImage
}

// TransferArtifact copies the compressed archive to the host's staging
// path and confirms the staged bytes by comparing the remote sha256
// against the artifact digest. Any failure terminates this host's
// pipeline; the distributor moves on to the next host.
func (w *HostWorkflow) TransferArtifact() Activity[Host, TransferResult] {
	return NewActivity("transfer-artifact", func(ctx context.Context, host Host) (TransferResult, error) {
		log := w.hostLog(host, "transfer")
		log.Info("transferring artifact")

		art := w.Job.Artifact
		if err := w.Transport.Copy(ctx, host, art.LocalPath, art.RemoteArchivePath()); err != nil {
			log.Errorf("copy failed: %v", err)
			return TransferResult{Detail: fmt.Sprintf("copy: %v", err)}, nil
		}

		out, err := w.Transport.Run(ctx, host, ChecksumCommand(art.RemoteArchivePath()))
		if err != nil {
			log.Errorf("checksum failed: %v", err)
			return TransferResult{Detail: fmt.Sprintf("checksum: %v", err)}, nil
		}
		if out.ExitCode != 0 {
			detail := fmt.Sprintf("checksum exited %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr))
			log.Error(detail)
			return TransferResult{Detail: detail}, nil
		}
		fields := strings.Fields(out.Stdout)
		if len(fields) == 0 || fields[0] != art.Digest.Encoded() {
			log.Error("staged file digest mismatch")
			return TransferResult{Detail: "staged file digest mismatch"}, nil
		}

		log.Info("artifact staged")
		return TransferResult{Delivered: true}, nil
	})
}

// LoadImage runs the remote load sequence. The chain is fail-fast and
// reports as a single outcome; no partial-success state is distinguished.
func (w *HostWorkflow) LoadImage() Activity[Host, LoadResult] {
	return NewActivity("load-image", func(ctx context.Context, host Host) (LoadResult, error) {
		log := w.hostLog(host, "load")
		log.Info("loading image into runtime")

		for _, cmd := range LoadSequence(w.Job.Credential, w.Job.Namespace, w.Job.Artifact) {
			out, err := w.Transport.Run(ctx, host, cmd)
			if err != nil {
				log.Errorf("%s: %v", cmd, err)
				return LoadResult{Detail: fmt.Sprintf("%s: %v", cmd, err)}, nil
			}
			if out.ExitCode != 0 {
				detail := fmt.Sprintf("%s exited %d: %s", cmd, out.ExitCode, strings.TrimSpace(out.Stderr))
				log.Error(detail)
				return LoadResult{Detail: detail}, nil
			}
		}

		log.Info("image loaded")
		return LoadResult{Loaded: true}, nil
	})
}

// VerifyImage queries the runtime listing and extracts the matching
// entry. Query failure and no-match collapse into the same outcome.
func (w *HostWorkflow) VerifyImage() Activity[Host, VerifyResult] {
	return NewActivity("verify-image", func(ctx context.Context, host Host) (VerifyResult, error) {
		log := w.hostLog(host, "verify")

		out, err := w.Transport.Run(ctx, host, ListImagesCommand(w.Job.Credential, w.Job.Namespace))
		if err != nil || out.ExitCode != 0 {
			log.Warn("image not found in runtime listing")
			return VerifyResult{}, nil
		}
		img, ok := FindInListing(out.Stdout, w.Job.Image)
		if ok {
			log.Infof("verified %s (%s)", img.Ref, img.Size)
		} else {
			log.Warn("image not found in runtime listing")
		}
		return VerifyResult{Found: ok, Image: img}, nil
	})
}

// RecordOutcome persists the host result. Recording is telemetry; a
// failed write is logged and swallowed.
func (w *HostWorkflow) RecordOutcome() Activity[HostResult, struct{}] {
	return NewActivity("record-outcome", func(ctx context.Context, res HostResult) (struct{}, error) {
		if w.Records == nil {
			return struct{}{}, nil
		}
		rec := RunRecord{
			JobID:     w.Job.ID,
			Host:      res.Host,
			Image:     w.Job.Image,
			Result:    res,
			UpdatedAt: w.now(),
		}
		if err := w.Records.Put(ctx, rec); err != nil {
			w.log().WithField("host", res.Host).Warnf("record outcome: %v", err)
		}
		return struct{}{}, nil
	})
}

// Run executes the pipeline for one host. A failed transfer skips load
// and verify; verification is attempted even when load failed, since an
// import may partially succeed or a prior run may already have loaded
// the image.
func (w *HostWorkflow) Run(runner DurableRunner, host Host) (HostResult, error) {
	res := HostResult{Host: host.ID(), Transfer: StageFailure, Load: StageSkipped, Verify: StageSkipped}

	transfer, err := RunActivity(runner, w.TransferArtifact(), host)
	if err != nil {
		return HostResult{}, fmt.Errorf("transfer activity: %w", err)
	}
	if !transfer.Delivered {
		res.Detail = transfer.Detail
		return w.finish(runner, res)
	}
	res.Transfer = StageSuccess

	load, err := RunActivity(runner, w.LoadImage(), host)
	if err != nil {
		return HostResult{}, fmt.Errorf("load activity: %w", err)
	}
	if load.Loaded {
		res.Load = StageSuccess
	} else {
		res.Load = StageFailure
		res.Detail = load.Detail
	}

	verify, err := RunActivity(runner, w.VerifyImage(), host)
	if err != nil {
		return HostResult{}, fmt.Errorf("verify activity: %w", err)
	}
	if verify.Found {
		res.Verify = VerifyFound
		res.Verified = verify.Image
	} else {
		res.Verify = VerifyNotFound
	}

	return w.finish(runner, res)
}

func (w *HostWorkflow) finish(runner DurableRunner, res HostResult) (HostResult, error) {
	if _, err := RunActivity(runner, w.RecordOutcome(), res); err != nil {
		return HostResult{}, fmt.Errorf("record activity: %w", err)
	}
	return res, nil
}

func (w *HostWorkflow) hostLog(host Host, stage string) logrus.FieldLogger {
	return w.log().WithFields(logrus.Fields{
		"host":  host.Address,
		"stage": stage,
		"image": w.Job.Image,
	})
}

func (w *HostWorkflow) log() logrus.FieldLogger {
	if w.Log != nil {
		return w.Log
	}
	return logrus.StandardLogger()
}

func (w *HostWorkflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}
