package config

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// document mirrors the YAML file with pointer fields so "present and
// non-null in the loaded document" is the sole override predicate.
type document struct {
	Logging *struct {
		Level     *string `yaml:"level"`
		Retention *int    `yaml:"retention"`
		Filename  *string `yaml:"filename"`
	} `yaml:"logging"`
	SQLite *struct {
		Path *string `yaml:"path"`
	} `yaml:"sqlite"`
	Shell *struct {
		Silent  *bool `yaml:"silent"`
		Timeout *int  `yaml:"timeout"`
	} `yaml:"shell"`
	Excludes *[]string         `yaml:"excludes"`
	Projects []projectDocument `yaml:"projects"`
	Targets  []targetDocument  `yaml:"targets"`
}

type taskDocument struct {
	Action  string  `yaml:"action"`
	Silent  *bool   `yaml:"silent"`
	Timeout *int    `yaml:"timeout"`
	Workdir *string `yaml:"workdir"`
}

type projectDocument struct {
	Name    string         `yaml:"name"`
	Path    string         `yaml:"path"`
	Workdir string         `yaml:"workdir"`
	Tasks   []taskDocument `yaml:"tasks"`
}

type targetDocument struct {
	Hostname string            `yaml:"hostname"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Projects []projectDocument `yaml:"projects"`
}

// Load reads the configuration file, validates it, and applies its values
// over the receiver field by field. It returns the SHA-256 hex digest of
// the file's raw bytes.
//
// On read, parse, or validation failure the digest is empty, the error is
// returned, and the receiver keeps its previous values — callers fall back
// to defaults; this routine does not decide fallback policy.
func (c *Config) Load() (string, error) {
	data, err := os.ReadFile(c.Filename)
	if err != nil {
		return "", fmt.Errorf("read config %s: %w", c.Filename, err)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	if err := validate(c.Filename, data); err != nil {
		return "", fmt.Errorf("validate config %s: %w", c.Filename, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse config %s: %w", c.Filename, err)
	}

	c.apply(&doc)
	return digest, nil
}

// validate checks the raw YAML against the embedded CUE schema before any
// override applies.
func validate(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	val := ctx.BuildFile(file)
	if err := val.Err(); err != nil {
		return fmt.Errorf("build yaml: %w", err)
	}

	if err := def.Unify(val).Validate(); err != nil {
		return err
	}
	return nil
}

// apply copies every present-and-non-null document field onto the config.
func (c *Config) apply(doc *document) {
	if doc.Logging != nil {
		if doc.Logging.Level != nil {
			c.Logging.Level = *doc.Logging.Level
		}
		if doc.Logging.Retention != nil {
			c.Logging.Retention = *doc.Logging.Retention
		}
		if doc.Logging.Filename != nil {
			c.Logging.Filename = *doc.Logging.Filename
		}
	}

	if doc.SQLite != nil && doc.SQLite.Path != nil {
		c.SQLite.Path = *doc.SQLite.Path
	}

	if doc.Shell != nil {
		if doc.Shell.Silent != nil {
			c.Shell.Silent = *doc.Shell.Silent
		}
		if doc.Shell.Timeout != nil {
			c.Shell.Timeout = *doc.Shell.Timeout
		}
	}

	if doc.Excludes != nil {
		c.Excludes = *doc.Excludes
	}

	if doc.Projects != nil {
		c.Projects = make([]Project, 0, len(doc.Projects))
		for _, p := range doc.Projects {
			c.Projects = append(c.Projects, c.project(p))
		}
	}

	if doc.Targets != nil {
		c.Targets = make([]Target, 0, len(doc.Targets))
		for _, t := range doc.Targets {
			target := Target{
				Hostname: t.Hostname,
				Port:     t.Port,
				Username: t.Username,
				Password: t.Password,
			}
			for _, p := range t.Projects {
				target.Projects = append(target.Projects, c.project(p))
			}
			c.Targets = append(c.Targets, target)
		}
	}
}

// project resolves one project document, merging Shell defaults and the
// project workdir into each task unless the task sets its own value.
func (c *Config) project(doc projectDocument) Project {
	project := Project{
		Name:    doc.Name,
		Path:    doc.Path,
		Workdir: doc.Workdir,
	}

	for _, t := range doc.Tasks {
		task := Task{
			Action:  t.Action,
			Silent:  c.Shell.Silent,
			Timeout: c.Shell.Timeout,
			Workdir: doc.Workdir,
		}
		if t.Silent != nil {
			task.Silent = *t.Silent
		}
		if t.Timeout != nil {
			task.Timeout = *t.Timeout
		}
		if t.Workdir != nil {
			task.Workdir = *t.Workdir
		}
		project.Tasks = append(project.Tasks, task)
	}

	return project
}
