package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if c.Server.QueueSize < 1 {
		return fmt.Errorf("server.queue_size must be > 0 (got %d)", c.Server.QueueSize)
	}

	if err := c.Import.validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if c.Delivery.RefreshURL != "" {
		u, err := url.Parse(c.Delivery.RefreshURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("delivery.refresh_url must be an absolute http(s) URL (got %q)", c.Delivery.RefreshURL)
		}
	}

	if strings.TrimSpace(c.Input.AllowedBaseDir) == "" {
		return fmt.Errorf("input.allowed_base_dir must not be empty")
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console (got %q)", c.Log.Format)
	}

	return nil
}

func (c *ImportConfig) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be > 0 (got %v)", c.SendTimeout)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be > 0 (got %d)", c.MaxRetries)
	}
	if c.DelayTime <= 0 {
		return fmt.Errorf("delay_time must be > 0 (got %v)", c.DelayTime)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("max_concurrent_requests must be > 0 (got %d)", c.MaxConcurrentRequests)
	}
	return nil
}

// SplitList splits a comma-separated setting, dropping blanks
func SplitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
