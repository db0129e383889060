package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	cwd       string
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithWorkingDir sets the directory the entry and root are resolved
// against. The default is the process working directory.
func WithWorkingDir(dir string) Option {
	return func(a *application) {
		a.cwd = dir
	}
}

// WithLogOutput redirects the JSON log. The default is stdout for the HTTP
// server and stderr for the MCP server, whose stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
