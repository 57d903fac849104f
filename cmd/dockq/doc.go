// Package main hosts the dockq CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into worker runs
// against a shared work table, queue inspection and reconciliation, table
// seeding, and the ligand split and conversion steps that precede docking.
// It centralizes configuration resolution and logger construction so
// subcommands only translate flags into calls on the internal packages.
//
// Keep this package lean: new behaviour belongs in an internal package first
// and is surfaced here through a command or flag.
package main
