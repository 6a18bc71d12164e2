package bootstrap

import "log"

// ProblemSink receives free-text problem reports for an external
// crash/bug reporting collaborator. Implementations are fire-and-forget
// and must swallow their own failures.
type ProblemSink interface {
	Report(message string)
}

// logSink is the bundled ProblemSink: it only writes to the process log.
// A remote reporting implementation can be injected in its place.
type logSink struct{}

// Report writes the problem to the standard logger.
func (logSink) Report(message string) {
	log.Printf("problem report: %s", message)
}
