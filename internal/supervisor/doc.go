// Package supervisor runs the external job for a claimed work item.
//
// A Supervisor renders the item's parameters into a command template, starts
// the result as a child process in its own process group, and classifies how
// it ended: success, failure, timeout, or interruption. On timeout or
// cancellation the whole group receives SIGTERM, then SIGKILL once the grace
// period lapses. Child output is streamed to the debug log and the last lines
// are kept for failure details.
package supervisor
