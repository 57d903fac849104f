// Package preflight provides readiness checks that run before workers start.
//
// These checks run in two contexts:
//   - "dockq run" calls RunAll and refuses to start when the table check
//     fails, so a typo in --table does not surface once per worker.
//   - "dockq queue status --check" prints every result for the operator.
package preflight
