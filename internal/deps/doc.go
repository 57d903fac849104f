// Package deps checks that external programs named by the configuration are
// installed.
package deps
