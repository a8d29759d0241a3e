package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/", cfg.HTTP.Root)
	assert.Equal(t, "cal", cfg.HTTP.CalendarRoot)
	assert.Equal(t, int64(10<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, "caldav", cfg.Auth.Realm)
	assert.Nil(t, cfg.Auth.UserPasswordPattern)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.True(t, cfg.Metrics)
	assert.False(t, cfg.DisableWellKnown)
	assert.Empty(t, cfg.Calendars)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CALDAV_ROOT", "/dav")
	t.Setenv("CALDAV_STORAGE", "SQLite")
	t.Setenv("CALDAV_SQLITE_DSN", "/tmp/x.db")
	t.Setenv("CALDAV_USER_PASSWORD_REGEX", `^(.+)~(.+)$`)
	t.Setenv("CALDAV_DISABLE_WELL_KNOWN", "true")
	t.Setenv("CALDAV_METRICS", "0")
	t.Setenv("CALDAV_CALENDARS", "alice/work:Work, alice/holidays:Holidays:ro,bob/home")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/dav", cfg.HTTP.Root)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.SQLiteDSN)
	require.NotNil(t, cfg.Auth.UserPasswordPattern)
	assert.True(t, cfg.Auth.UserPasswordPattern.MatchString("alice~pw"))
	assert.True(t, cfg.DisableWellKnown)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, []CalendarSeed{
		{PrincipalID: "alice", CalendarID: "work", Name: "Work"},
		{PrincipalID: "alice", CalendarID: "holidays", Name: "Holidays", ReadOnly: true},
		{PrincipalID: "bob", CalendarID: "home", Name: "home"},
	}, cfg.Calendars)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string][2]string{
		"bad regex":                {"CALDAV_USER_PASSWORD_REGEX", "("},
		"one group":                {"CALDAV_USER_PASSWORD_REGEX", "^(.+)$"},
		"bad bool":                  {"CALDAV_DISABLE_WELL_KNOWN", "maybe"},
		"bad size":                  {"CALDAV_MAX_BODY_BYTES", "big"},
		"bad storage":            {"CALDAV_STORAGE", "postgres"},
		"bad calendar":          {"CALDAV_CALENDARS", "alice"},
		"empty calendar id": {"CALDAV_CALENDARS", "alice/"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
