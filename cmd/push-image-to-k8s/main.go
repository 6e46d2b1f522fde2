// Command push-image-to-k8s distributes a locally built container image
// to a fleet of hosts over SSH and imports it into each host's
// containerd runtime, without a registry in between.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	wfsqlite "github.com/cschleiden/go-workflows/backend/sqlite"
	"github.com/cschleiden/go-workflows/client"
	"github.com/cschleiden/go-workflows/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sam30606/push-image-to-k8s/internal/application"
	"github.com/sam30606/push-image-to-k8s/internal/domain"
	"github.com/sam30606/push-image-to-k8s/internal/infrastructure/credsource"
	"github.com/sam30606/push-image-to-k8s/internal/infrastructure/dockersave"
	"github.com/sam30606/push-image-to-k8s/internal/infrastructure/goworkflows"
	"github.com/sam30606/push-image-to-k8s/internal/infrastructure/sqlite"
	"github.com/sam30606/push-image-to-k8s/internal/infrastructure/sshexec"
	"github.com/sam30606/push-image-to-k8s/internal/infrastructure/syncworkflow"
	"github.com/sam30606/push-image-to-k8s/internal/infrastructure/webhook"
)

const envPrefix = "PUSH_IMAGE"

var envKeyReplacer = strings.NewReplacer("-", "_")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "push-image-to-k8s",
		Short: "Distribute a container image to a host fleet over SSH",
		Long: `push-image-to-k8s exports a local container image, compresses it,
copies it to every target host over SSH, imports it into the containerd
namespace used by k3s, and verifies it appears in the runtime listing.
Per-host failures are reported; they never abort the rest of the fleet.`,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("image", "", "image identifier to distribute (required)")
	flags.String("hosts", "", "comma-separated target hosts (required)")
	flags.String("user", domain.PrivilegedUser, "SSH account on the targets")
	flags.String("key", "", "private key file for SSH auth")
	flags.String("namespace", "k8s.io", "containerd namespace to import into")
	flags.Bool("ask-password", false, "prompt for the sudo password (no echo)")
	flags.Bool("use-keyring", false, "look the sudo password up in the OS keyring")
	flags.Duration("timeout", 30*time.Second, "per-connection timeout")
	flags.Int("workers", 1, "hosts processed concurrently")
	flags.String("history-db", defaultHistoryDB(), "run history database path (empty disables)")
	flags.Bool("durable", false, "run host pipelines on the durable workflow engine")
	flags.String("report-url", "", "POST the final report JSON to this URL")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
	// The sudo secret has no flag on purpose: a flag value would be
	// visible in process listings and shell history.
	_ = v.BindEnv("sudo-password")

	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(level)

	image := v.GetString("image")
	hosts := domain.ParseHostList(v.GetString("hosts"))
	if image == "" || len(hosts) == 0 {
		return fmt.Errorf("%w: --image and --hosts are required", domain.ErrInvalidArgument)
	}
	// Arguments are sound; everything after this is a run failure, not
	// a usage error.
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := &application.DistributionService{
		Exporter: &dockersave.Exporter{},
		Transport: &sshexec.Transport{
			Config: domain.SSHConfig{
				User:    v.GetString("user"),
				KeyPath: v.GetString("key"),
				Timeout: v.GetDuration("timeout"),
			},
			Log: log,
		},
		Prompter: credsource.TerminalPrompter{},
		Secrets:  credsource.KeyringStore{},
		Log:      log,
		Workers:  v.GetInt("workers"),
	}

	if path := v.GetString("history-db"); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		defer db.Close()
		svc.Records = &sqlite.RunRecordRepo{DB: db}
	}

	engine, shutdown, err := selectEngine(ctx, v)
	if err != nil {
		return err
	}
	defer shutdown()
	svc.Engine = engine

	if url := v.GetString("report-url"); url != "" {
		svc.Notifier = webhook.New(url)
	}

	report, err := svc.Distribute(ctx, application.DistributeInput{
		Image:     image,
		Hosts:     hosts,
		Namespace: v.GetString("namespace"),
		SSH: domain.SSHConfig{
			User:    v.GetString("user"),
			KeyPath: v.GetString("key"),
			Timeout: v.GetDuration("timeout"),
		},
		Policy: domain.CredentialPolicy{
			User:        v.GetString("user"),
			AskPassword: v.GetBool("ask-password"),
			EnvSecret:   []byte(v.GetString("sudo-password")),
			UseKeyring:  v.GetBool("use-keyring"),
		},
	})
	if err != nil {
		return err
	}

	application.RenderReport(cmd.OutOrStdout(), report)

	return jobOutcome(report)
}

// jobOutcome maps the aggregate report to the process-level result.
// Partial success is a normal terminal state; only a fleet-wide zero
// counts as failure.
func jobOutcome(report domain.Report) error {
	if report.Succeeded() == 0 {
		return fmt.Errorf("no host fully succeeded")
	}
	return nil
}

// selectEngine returns the workflow engine: in-process by default, the
// durable go-workflows engine (sqlite backend next to the history db)
// with --durable.
func selectEngine(ctx context.Context, v *viper.Viper) (domain.WorkflowEngine, func(), error) {
	if !v.GetBool("durable") {
		return &syncworkflow.Engine{}, func() {}, nil
	}

	dir := filepath.Dir(v.GetString("history-db"))
	if v.GetString("history-db") == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create workflow directory: %w", err)
	}

	b := wfsqlite.NewSqliteBackend(filepath.Join(dir, "workflows.db"))
	w := worker.New(b, nil)

	workerCtx, cancel := context.WithCancel(ctx)
	if err := w.Start(workerCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start workflow worker: %w", err)
	}
	shutdown := func() {
		cancel()
		_ = w.WaitForCompletion()
	}

	engine := &goworkflows.Engine{
		Worker:  w,
		Client:  client.New(b),
		Timeout: 15 * time.Minute,
	}
	return engine, shutdown, nil
}

func defaultHistoryDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".push-image-to-k8s", "history.db")
}
