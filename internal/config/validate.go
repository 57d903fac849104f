package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validatePrepare(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("store.backend: unsupported value %q (use %q or %q)", c.Store.Backend, BackendFile, BackendSQLite)
	}
	if utf8.RuneCountInString(c.Store.Delimiter) != 1 {
		return fmt.Errorf("store.delimiter must be a single character, got %q", c.Store.Delimiter)
	}
	if strings.ContainsAny(c.Store.Delimiter, "\"\r\n") {
		return fmt.Errorf("store.delimiter cannot be %q", c.Store.Delimiter)
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.TimeLimit < 0 {
		return errors.New("worker.time_limit must be >= 0 (0 disables the limit)")
	}
	if c.Worker.KillGraceSeconds < 0 {
		return errors.New("worker.kill_grace_seconds must be >= 0")
	}
	if c.Worker.Parallel < 1 {
		return errors.New("worker.parallel must be >= 1")
	}
	if c.Worker.ReportRetries < 0 {
		return errors.New("worker.report_retries must be >= 0")
	}
	if c.Worker.OutputTailLines < 0 {
		return errors.New("worker.output_tail_lines must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validatePrepare() error {
	if c.Prepare.Workers < 0 {
		return errors.New("prepare.workers must be >= 0 (0 uses every CPU)")
	}
	if c.Prepare.InputSuffix == c.Prepare.OutputSuffix {
		return errors.New("prepare.input_suffix and prepare.output_suffix must differ")
	}
	return nil
}
