// Package securefile provides atomic, permission-hardened file I/O for the
// TPM backend's per-identity sealed artifacts. Adapted from the
// SecureFileWriter/WriteSecretFile/ReadSecureFile/EnsureSecureDir family in
// the witnessd security package, trimmed to what the TPM backend needs and
// using github.com/google/uuid for temp-file suffixes instead of a
// hand-rolled random hex suffix.
package securefile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// PermSecretFile is the permission for files containing sealed
	// artifacts: owner read/write only.
	PermSecretFile os.FileMode = 0600
	// PermSecretDir is the permission for directories containing them.
	PermSecretDir os.FileMode = 0700
)

var ErrInsecurePermissions = errors.New("securefile: insecure file permissions")

// EnsureSecureDir creates path (and parents) with owner-only permissions if
// it doesn't exist, or tightens its permissions if it does.
func EnsureSecureDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(path, PermSecretDir)
		}
		return errors.Wrap(err, "securefile: stat directory")
	}
	if !info.IsDir() {
		return errors.Errorf("securefile: %s is not a directory", path)
	}
	if runtime.GOOS == "windows" {
		return nil
	}
	if info.Mode().Perm()&0o077 != 0 {
		if err := os.Chmod(path, PermSecretDir); err != nil {
			return errors.Wrap(err, "securefile: tighten directory permissions")
		}
	}
	return nil
}

// WriteSecretFile writes data to path atomically (write-temp, fsync,
// rename) with 0600 permissions, per the TPM backend's "atomic file
// replacement" persistence requirement.
func WriteSecretFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureSecureDir(dir); err != nil {
		return err
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, PermSecretFile)
	if err != nil {
		return errors.Wrap(err, "securefile: create temp file")
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "securefile: write temp file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "securefile: sync temp file")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "securefile: close temp file")
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "securefile: atomic rename")
	}
	return nil
}

// ReadSecureFile reads path, first verifying it carries no group/other
// permission bits (on non-Windows hosts).
func ReadSecureFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return nil, errors.Wrapf(ErrInsecurePermissions, "%s has mode %04o", path, info.Mode().Perm())
	}
	return os.ReadFile(path)
}

// WipeAndRemove overwrites path with zeros before unlinking it, per the
// TPM backend's clear-artifact contract ("overwrite the file with zeros
// before unlinking").
func WipeAndRemove(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return errors.Wrap(err, "securefile: stat before wipe")
	}

	if f, err := os.OpenFile(path, os.O_WRONLY, 0); err == nil {
		zeros := make([]byte, info.Size())
		_, _ = f.WriteAt(zeros, 0)
		_ = f.Sync()
		_ = f.Close()
	}

	return os.Remove(path)
}
