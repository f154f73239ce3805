package filesync

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// Check compares each matched target's local checkouts against the
// downloaded mirrors in both directions, logging every file whose
// counterpart is missing or whose bytes differ. Returns whether any target
// matched.
func (s *Service) Check(ctx context.Context, target string) bool {
	bingo := false

	for _, host := range s.cfg.Targets {
		if target != "" && target != host.Hostname {
			continue
		}
		bingo = true

		for _, project := range host.Projects {
			local, ok := s.localPath(project.Name)
			if !ok {
				continue
			}

			tic := time.Now()
			s.log.Infof("comparing %s's %s ...", host.Hostname, project.Name)

			mirror := filepath.Join(runDir, host.Hostname, project.Name)
			s.comparePath(ctx, local, mirror)
			s.comparePath(ctx, mirror, local)

			s.log.Infof("... done in %.3fs", time.Since(tic).Seconds())
		}
	}

	return bingo
}

// comparePath walks base and reports every non-excluded file whose
// counterpart under mirror is missing or differs byte for byte. Paths are
// NFC-normalized before the relative lookup so both sides agree on names.
func (s *Service) comparePath(ctx context.Context, base, mirror string) {
	err := afero.Walk(s.fs, base, func(file string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(base, file)
		if err != nil {
			return err
		}
		if s.excluded(strings.Split(rel, string(filepath.Separator))...) {
			return nil
		}

		counterpart := filepath.Join(mirror, norm.NFC.String(rel))
		if !s.sameContents(file, counterpart) {
			s.log.Infof("compared: false, %s", file)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		s.log.WithField("err", err).Warnf("walking %s", base)
	}
}

// sameContents reports whether counterpart exists and carries the same
// bytes as file.
func (s *Service) sameContents(file, counterpart string) bool {
	want, err := afero.ReadFile(s.fs, file)
	if err != nil {
		return false
	}
	got, err := afero.ReadFile(s.fs, counterpart)
	if err != nil {
		return false
	}
	return bytes.Equal(want, got)
}
