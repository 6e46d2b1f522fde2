// Package dockersave implements [domain.ArtifactExporter] by streaming
// `docker save` through a gzip writer. The image tarball is never held
// in memory: export, compression, digesting, and byte counting happen
// in one pass over the stream.
package dockersave

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

// Exporter shells out to the docker CLI. Program is overridable for
// podman-compatible setups.
type Exporter struct {
	Program string
}

func (e *Exporter) program() string {
	if e.Program != "" {
		return e.Program
	}
	return "docker"
}

// Export runs `docker save image`, gzips the stream into destPath, and
// returns the artifact with its compressed-content digest and size
// stats. Any failure leaves no partial file behind.
func (e *Exporter) Export(ctx context.Context, image, destPath string) (domain.Artifact, error) {
	out, err := os.Create(destPath)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("create %s: %w", destPath, err)
	}

	digester := digest.SHA256.Digester()
	compressed := &countingWriter{w: io.MultiWriter(out, digester.Hash())}
	gz := gzip.NewWriter(compressed)
	raw := &countingWriter{w: gz}

	fail := func(err error) (domain.Artifact, error) {
		out.Close()
		os.Remove(destPath)
		return domain.Artifact{}, err
	}

	result, err := executor.New(e.program(), "save", image).Execute(ctx,
		executor.WithCapture(false, true, false),
		executor.WithStdoutWriter(raw),
	)
	if err != nil {
		detail := ""
		if result != nil {
			detail = strings.TrimSpace(result.Stderr)
		}
		if detail != "" {
			return fail(fmt.Errorf("%s save %s: %s", e.program(), image, detail))
		}
		return fail(fmt.Errorf("%s save %s: %w", e.program(), image, err))
	}

	if err := gz.Close(); err != nil {
		return fail(fmt.Errorf("flush gzip: %w", err))
	}
	if err := out.Close(); err != nil {
		return fail(fmt.Errorf("close %s: %w", destPath, err))
	}

	return domain.Artifact{
		Image:     image,
		LocalPath: destPath,
		Digest:    digester.Digest(),
		Stats: domain.ArtifactStats{
			RawBytes:        raw.n,
			CompressedBytes: compressed.n,
		},
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
