package application

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

// RenderReport writes the per-host outcome matrix and the per-stage
// counts. Every host of the job appears, whatever its outcome.
func RenderReport(w io.Writer, report domain.Report) {
	fmt.Fprintf(w, "\nDistribution report for %s (job %s)\n\n", report.Image, report.JobID)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tTRANSFER\tLOAD\tVERIFY\tREF\tSIZE")
	for _, id := range report.Hosts {
		res := report.Results[id]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			id, res.Transfer, res.Load, res.Verify, orDash(res.Verified.Ref), orDash(res.Verified.Size))
	}
	tw.Flush()

	transfer := report.StageCounts(func(r domain.HostResult) domain.StageOutcome { return r.Transfer })
	load := report.StageCounts(func(r domain.HostResult) domain.StageOutcome { return r.Load })
	verify := report.StageCounts(func(r domain.HostResult) domain.StageOutcome { return r.Verify })

	fmt.Fprintf(w, "\ntransfer: %d ok, %d failed\n", transfer[domain.StageSuccess], transfer[domain.StageFailure])
	fmt.Fprintf(w, "load:     %d ok, %d failed, %d skipped\n", load[domain.StageSuccess], load[domain.StageFailure], load[domain.StageSkipped])
	fmt.Fprintf(w, "verify:   %d found, %d not found, %d skipped\n", verify[domain.VerifyFound], verify[domain.VerifyNotFound], verify[domain.StageSkipped])
	fmt.Fprintf(w, "hosts fully succeeded: %d/%d\n", report.Succeeded(), len(report.Hosts))

	for _, id := range report.Hosts {
		if res := report.Results[id]; res.Detail != "" {
			fmt.Fprintf(w, "  %s: %s\n", id, res.Detail)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
