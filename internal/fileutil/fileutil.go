package fileutil

import (
	_ "crypto/sha256" // registers digest.Canonical
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// CopyFile streams src to dst with default permissions (0o644). The copy is
// written to a temporary sibling and renamed into place.
func CopyFile(src, dst string) error {
	_, err := copyFile(src, dst, 0o644, "")
	return err
}

// CopyFileVerified copies src to dst and checks the copy against want. An
// empty want only checks that the copied size matches the source. dst is
// never left behind on mismatch.
func CopyFileVerified(src, dst string, want digest.Digest) (digest.Digest, error) {
	return copyFile(src, dst, 0o644, want)
}

func copyFile(src, dst string, mode os.FileMode, want digest.Digest) (digest.Digest, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return "", err
	}
	tmp := out.Name()
	cleanup := func() {
		_ = out.Close()
		_ = os.Remove(tmp)
	}

	digester := digest.Canonical.Digester()
	written, err := io.Copy(io.MultiWriter(out, digester.Hash()), in)
	if err != nil {
		cleanup()
		return "", err
	}
	if written != info.Size() {
		cleanup()
		return "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	got := digester.Digest()
	if want != "" && got != want {
		cleanup()
		return "", fmt.Errorf("copy digest mismatch: want %s, got %s", want, got)
	}
	if err := out.Sync(); err != nil {
		cleanup()
		return "", err
	}
	if err := out.Chmod(mode); err != nil {
		cleanup()
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return got, nil
}
