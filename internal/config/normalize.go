package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeWorker(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.normalizePrepare()
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("DOCKQ_TABLE"); ok && strings.TrimSpace(value) != "" {
		c.Store.Path = value
	}
	if value, ok := os.LookupEnv("DOCKQ_TIME_LIMIT"); ok {
		if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			c.Worker.TimeLimit = seconds
		}
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultBackend
	}
	var err error
	if c.Store.Path, err = expandPath(strings.TrimSpace(c.Store.Path)); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	switch strings.ToLower(c.Store.Delimiter) {
	case "":
		c.Store.Delimiter = defaultDelimiter
	case "tab", `\t`:
		c.Store.Delimiter = "\t"
	}
	if c.Store.LockPollMillis <= 0 {
		c.Store.LockPollMillis = defaultLockPollMillis
	}
	return nil
}

func (c *Config) normalizeWorker() error {
	c.Worker.CommandTemplate = strings.TrimSpace(c.Worker.CommandTemplate)
	if c.Worker.CommandTemplate == "" {
		c.Worker.CommandTemplate = DefaultCommandTemplate
	}
	if c.Worker.Parallel == 0 {
		c.Worker.Parallel = defaultParallel
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePrepare() {
	c.Prepare.Converter = strings.TrimSpace(c.Prepare.Converter)
	if c.Prepare.Converter == "" {
		c.Prepare.Converter = defaultConverter
	}
	if strings.TrimSpace(c.Prepare.InputSuffix) == "" {
		c.Prepare.InputSuffix = defaultInputSuffix
	}
	if strings.TrimSpace(c.Prepare.OutputSuffix) == "" {
		c.Prepare.OutputSuffix = defaultOutputSuffix
	}
	if strings.TrimSpace(c.Split.Suffix) == "" {
		c.Split.Suffix = defaultSplitSuffix
	}
}
