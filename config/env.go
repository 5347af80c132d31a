package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// ApplyEnv overlays the SCRAPER_* variables onto c.
func (c *Config) ApplyEnv() error {
	for key, dst := range map[string]*int{
		"SCRAPER_START_YEAR": &c.StartYear,
		"SCRAPER_END_YEAR":   &c.EndYear,
		"SCRAPER_PARALLEL":   &c.Parallelism,
	} {
		v, ok, err := EnvInt(key)
		if err != nil {
			return fmt.Errorf("invalid %w", err)
		}
		if ok {
			*dst = v
		}
	}

	if v, ok := EnvString("SCRAPER_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString("SCRAPER_RENDERER"); ok {
		c.Renderer = strings.ToLower(v)
	}
	if v, ok, err := EnvBool("SCRAPER_GENRES"); err != nil {
		return fmt.Errorf("invalid %w", err)
	} else if ok {
		c.IncludeGenres = v
	}
	if v, ok, err := EnvDuration("SCRAPER_DELAY"); err != nil {
		return fmt.Errorf("invalid %w", err)
	} else if ok {
		c.Delay = v
	}
	return nil
}
