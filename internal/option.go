package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mode   mode
	logOut io.Writer
}

type mode int

const (
	modeServe mode = iota
	modeMCP
)

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMCP serves MCP over stdio instead of HTTP.
func WithMCP() Option {
	return func(a *application) {
		a.mode = modeMCP
	}
}

// WithLogOutput redirects structured logs. MCP mode needs stdout for the
// protocol, so logs go to stderr there unless overridden.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}
