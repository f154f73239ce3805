package filesync

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/oddjob-dev/oddjob/internal/config"
)

// Generate writes the annotated skeleton configuration to the configured
// path. An existing config file is moved aside with a timestamp suffix
// rather than overwritten.
func (s *Service) Generate() error {
	if exists, _ := afero.Exists(s.fs, s.cfg.Filename); exists {
		backup := filepath.Join(runDir, fmt.Sprintf("config_%s.yml", time.Now().Format("20060102_150405")))
		if err := s.fs.Rename(s.cfg.Filename, backup); err != nil {
			return fmt.Errorf("back up existing config: %w", err)
		}
		s.log.Infof("existing config file renamed to %s", backup)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.cfg.Filename), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.cfg.Filename, config.Skeleton(), 0o644); err != nil {
		return fmt.Errorf("write skeleton config: %w", err)
	}

	s.log.Info("skeleton config file generated")
	return nil
}

// Reset removes every target's downloaded mirror plus the cache and log
// files under the run directory. The store must not be open when Reset
// runs; its backing file is among the deletions.
func (s *Service) Reset() error {
	tic := time.Now()
	s.log.Info("resetting, removing caches and logs ...")

	for _, host := range s.cfg.Targets {
		folder := filepath.Join(runDir, host.Hostname)
		if exists, _ := afero.DirExists(s.fs, folder); !exists {
			continue
		}
		if err := s.fs.RemoveAll(folder); err != nil {
			return fmt.Errorf("remove %s: %w", folder, err)
		}
		s.log.Infof("- deleted: %s/*", folder)
	}

	// The WAL and SHM sidecars match the glob alongside the main files.
	patterns := []string{
		filepath.Clean(s.cfg.SQLite.Path) + "*",
		filepath.Clean(s.cfg.Logging.Filename) + "*",
	}
	for _, pattern := range patterns {
		matches, err := afero.Glob(s.fs, pattern)
		if err != nil {
			return fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, file := range matches {
			if err := s.fs.Remove(file); err != nil {
				return fmt.Errorf("remove %s: %w", file, err)
			}
			s.log.Infof("- deleted: %s", file)
		}
	}

	s.log.Infof("... done, reset in %.3fs", time.Since(tic).Seconds())
	return nil
}
