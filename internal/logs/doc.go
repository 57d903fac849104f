// Package logs reads the dockq log file for the "dockq logs" command: the
// last lines on demand, then new lines as workers append them.
package logs
