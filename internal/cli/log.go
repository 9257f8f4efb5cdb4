// Package cli implements the meshio command-line interface.
//
// The commands read, write, convert and inspect mesh files through the
// format dispatcher in pkg/meshio, and serve the same conversions over
// HTTP. The CLI is built with cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - convert: Convert a mesh file from one format to another
//   - info: Print a summary of a mesh file
//   - formats: List the registered format identifiers and extensions
//   - scan: Summarize every mesh file below a directory
//   - serve: Run the HTTP conversion server
//   - cache: Manage the conversion cache
//
// # Logging
//
// Every command accepts --verbose (-v) for debug-level logging. The root
// command attaches its logger to the command context, so subcommands and
// the helpers they call share one logger and one output.
//
// # Configuration
//
// Defaults come from a TOML file (--config, or config.toml under the
// user config directory); flags override it per invocation.
//
// # Example
//
//	import "github.com/matzehuels/meshio/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger that writes to w and drops messages below
// level. Timestamps are formatted as "HH:MM:SS.ms" (e.g. "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start of an operation and logs its completion with
// the elapsed duration. It is meant for one goroutine; concurrent calls to
// done race on the logger fields.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker whose clock starts now. Call
// done once the operation has finished.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with the given key-value pairs and an
// "elapsed" field, the time since newProgress rounded to milliseconds.
// Example output: "INFO Converted points=1024 elapsed=12ms".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

// ctxKey is the type of the context keys of this package. A distinct
// unexported type keeps them from colliding with keys of other packages.
type ctxKey int

// loggerKey is the context key under which the command logger is stored.
const loggerKey ctxKey = 0

// withLogger returns a copy of ctx carrying l. Retrieve it with
// loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger. Without
// one it returns log.Default(), so helpers invoked outside a command (in
// tests, for instance) still have a usable logger.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
