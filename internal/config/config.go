// Package config reads the server settings from CALDAV_* environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

type HTTPConfig struct {
	Addr          string
	Root          string
	CalendarRoot  string
	ICSRoot       string
	PrincipalRoot string
	MaxBodyBytes  int64
}

type AuthConfig struct {
	Realm string
	// UserPasswordPattern extracts credentials embedded in the principal segment
	UserPasswordPattern *regexp.Regexp
	// Users is "username:bcrypt-hash[:display name]", comma separated
	Users string
}

type StorageConfig struct {
	// Type is "memory" or "sqlite"
	Type      string
	SQLiteDSN string
}

// CalendarSeed is a calendar created at startup when missing.
type CalendarSeed struct {
	PrincipalID string
	CalendarID  string
	Name        string
	ReadOnly    bool
}

type Config struct {
	HTTP             HTTPConfig
	Auth             AuthConfig
	Storage          StorageConfig
	Calendars        []CalendarSeed
	DisableWellKnown bool
	ProductID        string
	Metrics          bool
	LogLevel         string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// Load reads the environment. Malformed values are errors rather than silently
// replaced by defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:          getenv("CALDAV_LISTEN_ADDR", ":8080"),
			Root:          getenv("CALDAV_ROOT", "/"),
			CalendarRoot:  getenv("CALDAV_CALENDAR_ROOT", "cal"),
			ICSRoot:       getenv("CALDAV_ICS_ROOT", "ics"),
			PrincipalRoot: getenv("CALDAV_PRINCIPAL_ROOT", "p"),
		},
		Auth: AuthConfig{
			Realm: getenv("CALDAV_REALM", "caldav"),
			Users: os.Getenv("CALDAV_USERS"),
		},
		Storage: StorageConfig{
			Type:      strings.ToLower(getenv("CALDAV_STORAGE", "memory")),
			SQLiteDSN: getenv("CALDAV_SQLITE_DSN", "data/caldav.db"),
		},
		ProductID: getenv("CALDAV_PRODUCT_ID", ""),
		LogLevel:  getenv("CALDAV_LOG_LEVEL", "info"),
	}

	var err error
	cfg.HTTP.MaxBodyBytes, err = strconv.ParseInt(getenv("CALDAV_MAX_BODY_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("CALDAV_MAX_BODY_BYTES: %w", err)
	}
	if pattern := os.Getenv("CALDAV_USER_PASSWORD_REGEX"); pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("CALDAV_USER_PASSWORD_REGEX: %w", err)
		}
		if re.NumSubexp() < 2 {
			return nil, fmt.Errorf("CALDAV_USER_PASSWORD_REGEX: need two capture groups, got %d", re.NumSubexp())
		}
		cfg.Auth.UserPasswordPattern = re
	}
	if cfg.DisableWellKnown, err = getbool("CALDAV_DISABLE_WELL_KNOWN", false); err != nil {
		return nil, err
	}
	if cfg.Metrics, err = getbool("CALDAV_METRICS", true); err != nil {
		return nil, err
	}
	if cfg.Calendars, err = parseCalendars(os.Getenv("CALDAV_CALENDARS")); err != nil {
		return nil, err
	}

	switch cfg.Storage.Type {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("CALDAV_STORAGE: unknown storage type %q", cfg.Storage.Type)
	}
	return cfg, nil
}

// parseCalendars reads "principal/calendar[:name][:ro]" entries separated by commas.
func parseCalendars(spec string) ([]CalendarSeed, error) {
	var seeds []CalendarSeed
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		ids := strings.SplitN(parts[0], "/", 2)
		if len(ids) != 2 || ids[0] == "" || ids[1] == "" {
			return nil, fmt.Errorf("CALDAV_CALENDARS: malformed entry %q", entry)
		}
		seed := CalendarSeed{PrincipalID: ids[0], CalendarID: ids[1], Name: ids[1]}
		if len(parts) > 1 && parts[1] != "" {
			seed.Name = parts[1]
		}
		if len(parts) > 2 {
			seed.ReadOnly = parts[2] == "ro"
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}
