// Package worker drives the claim, execute, report cycle until the work
// table has no pending rows.
//
// A Worker moves through Idle, Claiming, Executing and Reporting for each
// item and stops in Drained once a claim comes back empty. Every outcome is
// reported, including timeouts, which return the row to pending. Several
// workers may share one table; the store's lock keeps their claims disjoint.
package worker
