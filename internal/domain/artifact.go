package domain

import (
	"path"
	"regexp"
	"strings"

	"github.com/opencontainers/go-digest"
)

// remoteStagingDir is the well-known temporary location where transferred
// artifacts are placed on every host before import.
const remoteStagingDir = "/tmp"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeImageName turns an image identifier into a filesystem-safe
// filename stem. Every character outside [A-Za-z0-9._-] becomes "_";
// the mapping is deterministic.
func SanitizeImageName(image string) string {
	return unsafeNameChars.ReplaceAllString(image, "_")
}

// ArtifactStats is informational compression telemetry. It never affects
// control flow.
type ArtifactStats struct {
	RawBytes        int64
	CompressedBytes int64
}

// SavedPercent reports how much of the raw size compression removed.
func (s ArtifactStats) SavedPercent() float64 {
	if s.RawBytes == 0 {
		return 0
	}
	return 100 * (1 - float64(s.CompressedBytes)/float64(s.RawBytes))
}

// Artifact references a prepared, compressed image archive on the local
// filesystem together with its content digest and compression stats.
// The orchestrator tracks it; producing it is the exporter's job.
type Artifact struct {
	Image     string
	LocalPath string
	Digest    digest.Digest
	Stats     ArtifactStats
}

// RemoteArchivePath is where the compressed archive is staged on a host.
func (a Artifact) RemoteArchivePath() string {
	return path.Join(remoteStagingDir, SanitizeImageName(a.Image)+".tar.gz")
}

// RemoteImagePath is where the decompressed archive lands on a host. It
// is removed again after a successful import.
func (a Artifact) RemoteImagePath() string {
	return strings.TrimSuffix(a.RemoteArchivePath(), ".gz")
}
