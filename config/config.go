// Package config holds settings for the rilltime command line tools.
//
// Only the CLI and REPL read this; the engine packages take all their
// inputs as parameters.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete rilltime tool configuration.
type Config struct {
	Timezone    string `yaml:"timezone"`     // IANA name, e.g. "America/New_York"
	WeekStart   string `yaml:"week_start"`   // weekday name, "monday" unless set
	Locale      string `yaml:"locale"`       // display locale for rendered ranges
	Output      string `yaml:"output"`       // "text" or "json"
	HistoryFile string `yaml:"history_file"` // REPL history path, empty for the default
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Timezone:  "UTC",
		WeekStart: "monday",
		Locale:    "en-US",
		Output:    "text",
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StartOfWeek resolves the configured week start.
func (c *Config) StartOfWeek() (time.Weekday, error) {
	return ParseWeekday(c.WeekStart)
}

// ParseWeekday maps a weekday name or three-letter abbreviation to a
// time.Weekday. An empty name means Monday.
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(name) {
	case "", "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	}
	return time.Monday, fmt.Errorf("invalid week start %q (use a weekday name)", name)
}
