// Package sshexec implements [domain.Transport] over SSH: sftp for file
// staging, one exec session per command. Every operation dials its own
// connection, bounded by the job's connection timeout, so one
// unreachable host cannot stall the rest of the fleet.
package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

const defaultPort = 22

// Transport dials hosts with the job-wide SSH configuration. Host-key
// verification is disabled; see [domain.SSHConfig].
type Transport struct {
	Config domain.SSHConfig
	Log    logrus.FieldLogger
}

// Copy stages the local file at the remote path over sftp.
func (t *Transport) Copy(ctx context.Context, host domain.Host, localPath, remotePath string) error {
	client, done, err := t.dial(ctx, host)
	if err != nil {
		return err
	}
	defer done()

	ftp, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("sftp session to %s: %w", host.Address, err)
	}
	defer ftp.Close()

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := ftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create %s on %s: %w", remotePath, host.Address, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy to %s:%s: %w", host.Address, remotePath, err)
	}
	return nil
}

// Run executes one command in its own session. The command's stdin
// payload (if any) is attached to the session and never rendered into
// the command line. A non-zero exit is a result, not an error.
func (t *Transport) Run(ctx context.Context, host domain.Host, cmd domain.RemoteCommand) (domain.RemoteOutput, error) {
	client, done, err := t.dial(ctx, host)
	if err != nil {
		return domain.RemoteOutput{}, err
	}
	defer done()

	session, err := client.NewSession()
	if err != nil {
		return domain.RemoteOutput{}, fmt.Errorf("session on %s: %w", host.Address, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if len(cmd.Stdin) > 0 {
		session.Stdin = bytes.NewReader(cmd.Stdin)
	}

	if t.Log != nil {
		t.Log.WithField("host", host.Address).Debugf("run: %s", cmd)
	}

	runErr := session.Run(cmd.String())
	out := domain.RemoteOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			out.ExitCode = exitErr.ExitStatus()
			return out, nil
		}
		return out, fmt.Errorf("run on %s: %w", host.Address, runErr)
	}
	return out, nil
}

// dial opens an authenticated connection. The configured timeout bounds
// TCP connect and handshake; cancelling ctx tears the connection down,
// abandoning any in-flight operation. The returned done func releases
// the connection and its cancellation watcher.
func (t *Transport) dial(ctx context.Context, host domain.Host) (*ssh.Client, func(), error) {
	cfg := &ssh.ClientConfig{
		User:            t.Config.User,
		Auth:            t.authMethods(),
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.Config.Timeout,
	}

	addr := net.JoinHostPort(host.Address, strconv.Itoa(t.port()))
	dialer := net.Dialer{Timeout: t.Config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-stop:
		}
	}()
	done := func() {
		close(stop)
		client.Close()
	}

	return client, done, nil
}

func (t *Transport) authMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if t.Config.KeyPath != "" {
		if key, err := os.ReadFile(t.Config.KeyPath); err == nil {
			if signer, err := ssh.ParsePrivateKey(key); err == nil {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	return methods
}

func (t *Transport) port() int {
	if t.Config.Port > 0 {
		return t.Config.Port
	}
	return defaultPort
}
