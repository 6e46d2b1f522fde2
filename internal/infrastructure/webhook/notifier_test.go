package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

func sampleReport() domain.Report {
	return domain.Report{
		JobID: "j1",
		Image: "nginx:latest",
		Hosts: []domain.HostID{"h1", "h2", "h3"},
		Results: map[domain.HostID]domain.HostResult{
			"h1": {
				Host: "h1", Transfer: domain.StageSuccess, Load: domain.StageSuccess,
				Verify:   domain.VerifyFound,
				Verified: domain.VerifiedImage{Ref: "docker.io/library/nginx:latest", Size: "56.3 MiB"},
			},
			"h2": {
				Host: "h2", Transfer: domain.StageSuccess, Load: domain.StageFailure,
				Verify: domain.VerifyNotFound, Detail: "sudo: a password is required",
			},
			"h3": {
				Host: "h3", Transfer: domain.StageFailure, Load: domain.StageSkipped,
				Verify: domain.StageSkipped, Detail: "dial h3: no route to host",
			},
		},
	}
}

func TestNotify(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Notify(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got.JobID != "j1" || got.Image != "nginx:latest" {
		t.Errorf("payload header = %q/%q", got.JobID, got.Image)
	}
	if got.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", got.Succeeded)
	}

	want := stageCounts{
		TransferSucceeded: 2, TransferFailed: 1,
		LoadSucceeded: 1, LoadFailed: 1, LoadSkipped: 1,
		VerifyFound: 1, VerifyNotFound: 1, VerifySkipped: 1,
	}
	if got.Counts != want {
		t.Errorf("Counts = %+v, want %+v", got.Counts, want)
	}

	if len(got.Hosts) != 3 {
		t.Fatalf("got %d host entries, want 3", len(got.Hosts))
	}
	if got.Hosts[0].Host != "h1" || got.Hosts[0].Ref != "docker.io/library/nginx:latest" {
		t.Errorf("first host entry = %+v", got.Hosts[0])
	}
}

func TestNotify_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Notify(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}
