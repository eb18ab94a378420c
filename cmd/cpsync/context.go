package main

import (
	"strings"
	"sync"

	"github.com/five82/cpsync/internal/app"
	"github.com/five82/cpsync/internal/config"
)

type globalFlags struct {
	config   string
	prefs    string
	link     string
	device   string
	logLevel string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) appOptions() app.Options {
	return app.Options{
		ConfigPath: strings.TrimSpace(c.flags.config),
		PrefsPath:  strings.TrimSpace(c.flags.prefs),
		Link:       strings.TrimSpace(c.flags.link),
		Device:     strings.TrimSpace(c.flags.device),
		LogLevel:   strings.TrimSpace(c.flags.logLevel),
	}
}

// bootstrap wires the runtime for a headless command; logs go to stderr and
// the log file.
func (c *commandContext) bootstrap() (*app.Runtime, error) {
	return app.Bootstrap(c.appOptions())
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(strings.TrimSpace(c.flags.config))
	})
	return c.config, c.configErr
}
