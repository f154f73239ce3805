// Package filesync downloads project trees from configured SFTP targets
// into a local mirror and compares them against local checkouts.
package filesync

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/oddjob-dev/oddjob/internal/config"
)

// runDir is where downloaded mirrors, the cache and the log files live.
const runDir = "run"

// Service drives the sync subcommand: download, check, generate, reset.
// The local side goes through an afero filesystem so tests run in memory;
// the remote side goes through the Dialer.
type Service struct {
	cfg      *config.Config
	fs       afero.Fs
	log      *logrus.Entry
	dial     Dialer
	excludes []*regexp.Regexp
}

// NewService compiles the configured exclude patterns and returns the
// service. A malformed pattern is a configuration error.
func NewService(cfg *config.Config, fs afero.Fs, log *logrus.Entry, dial Dialer) (*Service, error) {
	excludes := make([]*regexp.Regexp, 0, len(cfg.Excludes))
	for _, expr := range cfg.Excludes {
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile exclude %q: %w", expr, err)
		}
		excludes = append(excludes, pattern)
	}

	return &Service{
		cfg:      cfg,
		fs:       fs,
		log:      log,
		dial:     dial,
		excludes: excludes,
	}, nil
}

// excluded reports whether any path part matches an exclude pattern.
// Names are NFC-normalized first so macOS-decomposed names match patterns
// written in composed form.
func (s *Service) excluded(parts ...string) bool {
	for _, part := range parts {
		normalized := norm.NFC.String(part)
		for _, pattern := range s.excludes {
			if pattern.MatchString(normalized) {
				return true
			}
		}
	}
	return false
}

// Download mirrors each configured target's projects into
// run/<hostname>/<project>/. With a non-empty target filter only the named
// host runs. Returns whether any target matched.
//
// A dial failure logs an error and stops that target; per-file failures log
// and continue. Neither aborts the command.
func (s *Service) Download(ctx context.Context, target string) bool {
	bingo := false

	for _, host := range s.cfg.Targets {
		if target != "" && target != host.Hostname {
			continue
		}
		bingo = true

		remote, closer, err := s.dial(host)
		if err != nil {
			s.log.WithField("err", err).Errorf("connection to %s failed", host.Hostname)
			continue
		}
		s.log.Infof("connected to %s@%s:%d", host.Username, host.Hostname, host.Port)

		for _, project := range host.Projects {
			if ctx.Err() != nil {
				break
			}
			if !s.knownProject(project.Name) {
				continue
			}

			tic := time.Now()
			s.log.Infof("copying %s ...", project.Name)

			local := filepath.Join(runDir, host.Hostname, project.Name)
			if err := s.fs.RemoveAll(local); err != nil {
				s.log.WithField("err", err).Errorf("failed to clear %s", local)
				continue
			}

			counts := s.walk(ctx, remote, local, project.Path, 0)
			s.log.Infof("... %d files copied in %.3fs", counts, time.Since(tic).Seconds())
		}

		if err := closer.Close(); err != nil {
			s.log.WithField("err", err).Warnf("closing %s", host.Hostname)
		}
	}

	return bingo
}

// walk recursively downloads remotePath into localPath, skipping excluded
// names and preserving file modification times.
func (s *Service) walk(ctx context.Context, remote Remote, localPath, remotePath string, counts int) int {
	entries, err := remote.ReadDir(remotePath)
	if err != nil {
		s.log.Warnf("remote path not found: %s", remotePath)
		return counts
	}

	if err := s.fs.MkdirAll(localPath, 0o755); err != nil {
		s.log.WithField("err", err).Errorf("failed to create %s", localPath)
		return counts
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return counts
		}

		name := entry.Name()
		if s.excluded(name) {
			s.log.Debugf("skipping %s", name)
			continue
		}

		localFile := filepath.Join(localPath, name)
		remoteFile := path.Join(remotePath, name)

		if entry.IsDir() {
			counts = s.walk(ctx, remote, localFile, remoteFile, counts)
			continue
		}

		if err := s.download(remote, localFile, remoteFile, entry.ModTime()); err != nil {
			s.log.WithField("err", err).Errorf("failed to copy %s", remoteFile)
			continue
		}

		counts++
		s.log.Debugf("copied %s", remoteFile)
	}

	return counts
}

// download copies one remote file and re-applies its modification time.
func (s *Service) download(remote Remote, localFile, remoteFile string, mtime time.Time) error {
	src, err := remote.Open(remoteFile)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.fs.Create(localFile)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	return s.fs.Chtimes(localFile, mtime, mtime)
}

// knownProject reports whether a project name appears in the top-level
// projects list — only projects with a local checkout are synced.
func (s *Service) knownProject(name string) bool {
	for _, p := range s.cfg.Projects {
		if p.Name == name {
			return true
		}
	}
	return false
}

// localPath returns the local checkout path for a project name.
func (s *Service) localPath(name string) (string, bool) {
	for _, p := range s.cfg.Projects {
		if p.Name == name {
			return p.Path, true
		}
	}
	return "", false
}
