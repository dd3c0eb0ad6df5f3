package config

import (
	"errors"
	"fmt"
)

var validSpeedProfiles = map[string]struct{}{
	"safe":     {},
	"standard": {},
}

var validOCRModes = map[string]struct{}{
	"none": {},
	"fast": {},
	"slow": {},
	"both": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateHarness(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DownloadDir == "" {
		return errors.New("paths.download_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if _, ok := validSpeedProfiles[c.Network.SpeedProfile]; !ok {
		return fmt.Errorf("network.speed_profile must be one of safe, standard (got %q)", c.Network.SpeedProfile)
	}
	if c.Network.RetryAttempts < 1 {
		return errors.New("network.retry_attempts must be at least 1")
	}
	if c.Network.RetryBackoffSeconds < 1 {
		return errors.New("network.retry_backoff_seconds must be at least 1")
	}
	if c.Network.RequestTimeoutSeconds < 1 {
		return errors.New("network.request_timeout_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if _, ok := validOCRModes[c.OCR.Mode]; !ok {
		return fmt.Errorf("ocr.mode must be one of none, fast, slow, both (got %q)", c.OCR.Mode)
	}
	if (c.OCR.Mode == "slow" || c.OCR.Mode == "both") && c.OCR.SuryaBinary == "" {
		return errors.New("ocr.surya_binary must be set when the slow tier is enabled")
	}
	return nil
}

func (c *Config) validateHarness() error {
	if c.Harness.MemoryLimitMB == 0 {
		if c.Harness.MemoryFraction <= 0 || c.Harness.MemoryFraction > 1 {
			return errors.New("harness.memory_fraction must be in (0, 1]")
		}
	} else if c.Harness.MemoryLimitMB < 0 {
		return errors.New("harness.memory_limit_mb must not be negative")
	}
	if c.Harness.TimeoutMinutes < 1 {
		return errors.New("harness.timeout_minutes must be at least 1")
	}
	if c.Harness.PollSeconds < 1 {
		return errors.New("harness.poll_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
