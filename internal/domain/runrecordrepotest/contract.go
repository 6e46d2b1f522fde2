// Package runrecordrepotest provides contract tests for
// [domain.RunRecordRepository] implementations.
package runrecordrepotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

// Factory creates a fresh [domain.RunRecordRepository] for each test.
type Factory func(t *testing.T) domain.RunRecordRepository

// Run exercises the [domain.RunRecordRepository] contract.
func Run(t *testing.T, factory Factory) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	record := func(job string, host domain.HostID) domain.RunRecord {
		return domain.RunRecord{
			JobID: job,
			Host:  host,
			Image: "nginx:latest",
			Result: domain.HostResult{
				Host:     host,
				Transfer: domain.StageSuccess,
				Load:     domain.StageSuccess,
				Verify:   domain.VerifyFound,
				Verified: domain.VerifiedImage{Ref: "docker.io/library/nginx:latest", Size: "56.3 MiB"},
			},
			UpdatedAt: now,
		}
	}

	t.Run("PutAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Put(ctx, record("j1", "h1")); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := repo.Get(ctx, "j1", "h1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Result.Verify != domain.VerifyFound {
			t.Errorf("Verify = %q, want %q", got.Result.Verify, domain.VerifyFound)
		}
		if got.Result.Verified.Ref != "docker.io/library/nginx:latest" {
			t.Errorf("Verified.Ref = %q", got.Result.Verified.Ref)
		}
		if !got.UpdatedAt.Equal(now) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
		}
	})

	t.Run("PutUpserts", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		rec := record("j1", "h1")
		rec.Result.Load = domain.StageFailure
		rec.Result.Verify = domain.VerifyNotFound
		rec.Result.Verified = domain.VerifiedImage{}
		_ = repo.Put(ctx, rec)

		rec.Result.Load = domain.StageSuccess
		rec.Result.Verify = domain.VerifyFound
		rec.UpdatedAt = now.Add(time.Minute)
		if err := repo.Put(ctx, rec); err != nil {
			t.Fatalf("second Put: %v", err)
		}

		got, _ := repo.Get(ctx, "j1", "h1")
		if got.Result.Load != domain.StageSuccess {
			t.Errorf("Load after upsert = %q, want %q", got.Result.Load, domain.StageSuccess)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Get(context.Background(), "j1", "h1")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get: got %v, want ErrNotFound", err)
		}
	})

	t.Run("ListByJob", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		for _, host := range []domain.HostID{"h1", "h2"} {
			_ = repo.Put(ctx, record("j1", host))
		}
		_ = repo.Put(ctx, record("j2", "h3"))

		got, err := repo.ListByJob(ctx, "j1")
		if err != nil {
			t.Fatalf("ListByJob: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListByJob: got %d, want 2", len(got))
		}
	})

	t.Run("DeleteByJob", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		_ = repo.Put(ctx, record("j1", "h1"))
		_ = repo.Put(ctx, record("j1", "h2"))

		if err := repo.DeleteByJob(ctx, "j1"); err != nil {
			t.Fatalf("DeleteByJob: %v", err)
		}

		got, _ := repo.ListByJob(ctx, "j1")
		if len(got) != 0 {
			t.Fatalf("records remain after DeleteByJob: %d", len(got))
		}
	})
}
