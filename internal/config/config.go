// Package config loads the oddjob YAML configuration, validates it against
// an embedded CUE schema, and detects changes to the file via a SHA-256
// fingerprint persisted in the store's settings table.
package config

import (
	_ "embed"
)

//go:embed skeleton.yml
var skeleton []byte

// Skeleton returns the annotated skeleton configuration written by the
// generate command.
func Skeleton() []byte {
	return skeleton
}

// Logging configures the logging pipeline and the log retention window.
type Logging struct {
	Level     string // logrus level name
	Retention int    // days a log row may age before Purge removes it
	Filename  string // rotating log file path
}

// SQLite locates the store's backing file.
type SQLite struct {
	Path string
}

// Shell holds the defaults tasks inherit when their own fields are unset.
type Shell struct {
	Silent  bool
	Timeout int // seconds
}

// Task is one shell action provisioned by the exec command. Silent,
// Timeout and Workdir are filled from the Shell defaults and the owning
// project at load time.
type Task struct {
	Action  string
	Silent  bool
	Timeout int // seconds
	Workdir string
}

// Project names a local checkout. Path is the local directory for sync
// comparisons; Tasks are the shell actions exec provisions for it. Inside
// a Target, Path is the project's remote directory instead.
type Project struct {
	Name    string
	Path    string
	Workdir string
	Tasks   []Task
}

// Target is one remote host the sync command downloads from.
type Target struct {
	Hostname string
	Port     int
	Username string
	Password string
	Projects []Project // Path fields are remote directories
}

// Config is the full configuration surface. Zero-config runs work off
// Default(); a YAML file overrides fields field by field.
type Config struct {
	Filename string // config file path
	Version  string // release version

	Logging Logging
	SQLite  SQLite
	Shell   Shell

	Excludes []string // path-part regexes skipped by sync and check
	Projects []Project
	Targets  []Target
}

// Version is the release version reported by --version.
const Version = "0.3.0"

// Default returns the documented defaults. A missing or unreadable config
// file leaves these in effect.
func Default() *Config {
	return &Config{
		Filename: "./run/config.yml",
		Version:  Version,
		Logging: Logging{
			Level:     "info",
			Retention: 7,
			Filename:  "./run/oddjob.log",
		},
		SQLite: SQLite{
			Path: "./run/cache.sqlite",
		},
		Shell: Shell{
			Silent:  true,
			Timeout: 60,
		},
		Excludes: []string{
			".git",
			"node_modules",
			`\.(log|tmp|swp)$`,
		},
	}
}
