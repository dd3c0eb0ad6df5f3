package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/OtherLeadingBrand/PaperRouter/internal/config"
	"github.com/OtherLeadingBrand/PaperRouter/internal/logging"
	"github.com/OtherLeadingBrand/PaperRouter/internal/ratelimit"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openSource builds the named source with a limiter for the given speed
// profile name ("" falls back to the configured profile).
func (c *commandContext) openSource(name, profileName string) (source.Source, *ratelimit.Limiter, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	if profileName == "" {
		profileName = cfg.Network.SpeedProfile
	}
	profile, err := ratelimit.ProfileByName(profileName)
	if err != nil {
		return nil, nil, err
	}
	limiter := ratelimit.New(profile)

	src, err := source.Open(name, source.Options{
		UserAgent:      cfg.Network.UserAgent,
		RequestTimeout: time.Duration(cfg.Network.RequestTimeoutSeconds) * time.Second,
		RetryAttempts:  cfg.Network.RetryAttempts,
		RetryBackoff:   time.Duration(cfg.Network.RetryBackoffSeconds) * time.Second,
		Limiter:        limiter,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return src, limiter, nil
}
