// Package webhook implements [domain.ReportNotifier] by POSTing the
// final report as JSON to an operator-supplied URL.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

// Notifier posts reports with a short, bounded timeout. Notification is
// best-effort; the caller logs failures and moves on.
type Notifier struct {
	URL     string
	Timeout time.Duration

	client *resty.Client
}

// New returns a notifier for the given URL.
func New(url string) *Notifier {
	return &Notifier{URL: url}
}

func (n *Notifier) Notify(ctx context.Context, report domain.Report) error {
	timeout := n.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if n.client == nil {
		n.client = resty.New().SetTimeout(timeout)
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload{
			JobID:     report.JobID,
			Image:     report.Image,
			Succeeded: report.Succeeded(),
			Counts:    countsPayload(report),
			Hosts:     hostPayloads(report),
		}).
		Post(n.URL)
	if err != nil {
		return fmt.Errorf("post report to %s: %w", n.URL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post report to %s: status %s", n.URL, resp.Status())
	}
	return nil
}

type payload struct {
	JobID     string        `json:"job_id"`
	Image     string        `json:"image"`
	Succeeded int           `json:"succeeded"`
	Counts    stageCounts   `json:"counts"`
	Hosts     []hostPayload `json:"hosts"`
}

// stageCounts mirrors the rendered report's per-stage tallies.
type stageCounts struct {
	TransferSucceeded int `json:"transfer_succeeded"`
	TransferFailed    int `json:"transfer_failed"`
	LoadSucceeded     int `json:"load_succeeded"`
	LoadFailed        int `json:"load_failed"`
	LoadSkipped       int `json:"load_skipped"`
	VerifyFound       int `json:"verify_found"`
	VerifyNotFound    int `json:"verify_not_found"`
	VerifySkipped     int `json:"verify_skipped"`
}

func countsPayload(report domain.Report) stageCounts {
	transfer := report.StageCounts(func(r domain.HostResult) domain.StageOutcome { return r.Transfer })
	load := report.StageCounts(func(r domain.HostResult) domain.StageOutcome { return r.Load })
	verify := report.StageCounts(func(r domain.HostResult) domain.StageOutcome { return r.Verify })
	return stageCounts{
		TransferSucceeded: transfer[domain.StageSuccess],
		TransferFailed:    transfer[domain.StageFailure],
		LoadSucceeded:     load[domain.StageSuccess],
		LoadFailed:        load[domain.StageFailure],
		LoadSkipped:       load[domain.StageSkipped],
		VerifyFound:       verify[domain.VerifyFound],
		VerifyNotFound:    verify[domain.VerifyNotFound],
		VerifySkipped:     verify[domain.StageSkipped],
	}
}

type hostPayload struct {
	Host     string `json:"host"`
	Transfer string `json:"transfer"`
	Load     string `json:"load"`
	Verify   string `json:"verify"`
	Ref      string `json:"ref,omitempty"`
	Size     string `json:"size,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func hostPayloads(report domain.Report) []hostPayload {
	out := make([]hostPayload, 0, len(report.Hosts))
	for _, id := range report.Hosts {
		res := report.Results[id]
		out = append(out, hostPayload{
			Host:     string(id),
			Transfer: string(res.Transfer),
			Load:     string(res.Load),
			Verify:   string(res.Verify),
			Ref:      res.Verified.Ref,
			Size:     res.Verified.Size,
			Detail:   res.Detail,
		})
	}
	return out
}
