// Package shellex provisions per-project shell tasks: each task runs
// through the shell with a timeout, its output captured and logged unless
// the task is marked silent.
package shellex

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddjob-dev/oddjob/internal/config"
)

// Service runs the exec subcommand's tasks.
type Service struct {
	cfg *config.Config
	log *logrus.Entry
}

// NewService returns a task runner over the loaded configuration.
func NewService(cfg *config.Config, log *logrus.Entry) *Service {
	return &Service{cfg: cfg, log: log}
}

// Run provisions every task of the named project, in order. Task failures
// are logged, not raised; the loop continues with the next task. An unknown
// project name logs a warning.
func (s *Service) Run(ctx context.Context, project string) {
	for _, p := range s.cfg.Projects {
		if p.Name != project {
			continue
		}

		s.log.Infof("project selected: %s", p.Name)
		for _, task := range p.Tasks {
			if ctx.Err() != nil {
				return
			}
			s.Provision(ctx, task)
		}
		return
	}

	s.log.Warnf("no project found with name: %s", project)
}

// Provision runs one task through `sh -c` in its working directory,
// honoring the task timeout. Output is captured and logged unless the task
// is silent. A missing workdir, non-zero exit, or timeout logs an error and
// returns; nothing is raised to the caller.
func (s *Service) Provision(ctx context.Context, task config.Task) {
	workdir, err := expandHome(task.Workdir)
	if err != nil {
		s.log.WithField("err", err).Errorf("'%s' failed", task.Action)
		return
	}
	if workdir != "" {
		if info, err := os.Stat(workdir); err != nil || !info.IsDir() {
			s.log.Errorf("working directory does not exist: %s", workdir)
			return
		}
	}

	timeout := time.Duration(task.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.log.Infof("exec [ %s ]", task.Action)
	cmd := exec.CommandContext(ctx, "sh", "-c", task.Action)
	cmd.Dir = workdir

	output, err := cmd.CombinedOutput()
	if err != nil {
		s.log.Errorf("'%s' failed. error: %v", task.Action, err)
		return
	}

	if !task.Silent {
		s.log.Infof("output: %s", strings.TrimSpace(string(output)))
	}
}

// expandHome resolves a leading ~ against the current user's home directory.
func expandHome(dir string) (string, error) {
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", dir, err)
	}
	if dir == "~" {
		return home, nil
	}
	return filepath.Join(home, dir[2:]), nil
}
