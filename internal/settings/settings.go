// Package settings provides per-user preferences: timezone, morning and
// evening clock times and the auto-postpone (inertia) delay. Values a user
// never set fall back to the [defaults] section of the config.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

var (
	// ErrNotFound is returned by Store when the user has no stored settings.
	ErrNotFound = errors.New("settings not found")
	// ErrInvalid wraps every rejected settings value.
	ErrInvalid = errors.New("invalid settings value")
)

const (
	minAutoPostponeMinutes = 1
	maxAutoPostponeMinutes = 24 * 60
)

// UserSettings are the preferences of a single user. Empty or zero fields
// mean "use the default".
type UserSettings struct {
	Timezone            string `json:"timezone" yaml:"timezone"`
	MorningTime         string `json:"morning_time" yaml:"morning_time"`
	EveningTime         string `json:"evening_time" yaml:"evening_time"`
	AutoPostponeMinutes int    `json:"auto_postpone_minutes" yaml:"auto_postpone_minutes"`
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (s UserSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AutoPostpone returns the inertia delay.
func (s UserSettings) AutoPostpone() time.Duration {
	return time.Duration(s.AutoPostponeMinutes) * time.Minute
}

// ParseOptions converts the settings into parser options.
func (s UserSettings) ParseOptions() timeparse.Options {
	opts := timeparse.Options{Location: s.Location()}
	if c, err := timeparse.ParseClock(s.MorningTime); err == nil {
		opts.Morning = c
	}
	if c, err := timeparse.ParseClock(s.EveningTime); err == nil {
		opts.Evening = c
	}
	return opts
}

// merge fills empty fields of s from def.
func (s UserSettings) merge(def UserSettings) UserSettings {
	if s.Timezone == "" {
		s.Timezone = def.Timezone
	}
	if s.MorningTime == "" {
		s.MorningTime = def.MorningTime
	}
	if s.EveningTime == "" {
		s.EveningTime = def.EveningTime
	}
	if s.AutoPostponeMinutes <= 0 {
		s.AutoPostponeMinutes = def.AutoPostponeMinutes
	}
	return s
}

// Store persists per-user overrides.
type Store interface {
	GetSettings(ctx context.Context, userID int64) (*UserSettings, error)
	SaveSettings(ctx context.Context, userID int64, s UserSettings) error
}

// Provider merges stored overrides with config defaults.
type Provider struct {
	store  Store
	logger *logger.Logger

	mu       sync.RWMutex
	defaults UserSettings
}

// NewProvider creates a provider over store with the given defaults.
func NewProvider(store Store, defaults config.DefaultsConfig, log *logger.Logger) *Provider {
	return &Provider{
		store:    store,
		defaults: fromConfig(defaults),
		logger:   log.Component("settings"),
	}
}

func fromConfig(d config.DefaultsConfig) UserSettings {
	return UserSettings{
		Timezone:            d.Timezone,
		MorningTime:         d.MorningTime,
		EveningTime:         d.EveningTime,
		AutoPostponeMinutes: d.AutoPostponeMinutes,
	}
}

// Defaults returns the service-wide defaults.
func (p *Provider) Defaults() UserSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.defaults
}

// SetDefaults replaces the service-wide defaults after a config reload.
// Stored overrides are untouched.
func (p *Provider) SetDefaults(d config.DefaultsConfig) {
	p.mu.Lock()
	p.defaults = fromConfig(d)
	p.mu.Unlock()
}

// Get returns the effective settings of the user. Storage errors are logged
// and the defaults are used, so a broken settings row never blocks delivery.
func (p *Provider) Get(ctx context.Context, userID int64) UserSettings {
	stored, err := p.store.GetSettings(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		return p.Defaults()
	case err != nil:
		p.logger.WarnCtx(ctx, "failed to load user settings, using defaults",
			logger.Field{Key: "user_id", Value: userID},
			logger.Field{Key: "error", Value: err.Error()})
		return p.Defaults()
	}
	return stored.merge(p.Defaults())
}

// SetTimezone validates and stores an IANA timezone name.
func (p *Provider) SetTimezone(ctx context.Context, userID int64, tz string) (UserSettings, error) {
	if tz == "" {
		return UserSettings{}, fmt.Errorf("%w: empty timezone", ErrInvalid)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return UserSettings{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalid, tz)
	}
	return p.update(ctx, userID, func(s *UserSettings) { s.Timezone = tz })
}

// SetMorning stores the morning clock time ("HH:MM").
func (p *Provider) SetMorning(ctx context.Context, userID int64, clock string) (UserSettings, error) {
	c, err := timeparse.ParseClock(clock)
	if err != nil {
		return UserSettings{}, fmt.Errorf("%w: morning time %q", ErrInvalid, clock)
	}
	return p.update(ctx, userID, func(s *UserSettings) { s.MorningTime = c.String() })
}

// SetEvening stores the evening clock time ("HH:MM").
func (p *Provider) SetEvening(ctx context.Context, userID int64, clock string) (UserSettings, error) {
	c, err := timeparse.ParseClock(clock)
	if err != nil {
		return UserSettings{}, fmt.Errorf("%w: evening time %q", ErrInvalid, clock)
	}
	return p.update(ctx, userID, func(s *UserSettings) { s.EveningTime = c.String() })
}

// SetAutoPostpone stores the inertia delay in minutes.
func (p *Provider) SetAutoPostpone(ctx context.Context, userID int64, minutes int) (UserSettings, error) {
	if minutes < minAutoPostponeMinutes || minutes > maxAutoPostponeMinutes {
		return UserSettings{}, fmt.Errorf("%w: auto-postpone must be between %d and %d minutes",
			ErrInvalid, minAutoPostponeMinutes, maxAutoPostponeMinutes)
	}
	return p.update(ctx, userID, func(s *UserSettings) { s.AutoPostponeMinutes = minutes })
}

func (p *Provider) update(ctx context.Context, userID int64, apply func(*UserSettings)) (UserSettings, error) {
	var current UserSettings
	stored, err := p.store.GetSettings(ctx, userID)
	switch {
	case err == nil:
		current = *stored
	case !errors.Is(err, ErrNotFound):
		return UserSettings{}, fmt.Errorf("load settings: %w", err)
	}

	apply(&current)
	if err := p.store.SaveSettings(ctx, userID, current); err != nil {
		return UserSettings{}, fmt.Errorf("save settings: %w", err)
	}

	p.logger.InfoCtx(ctx, "user settings updated", logger.Field{Key: "user_id", Value: userID})
	return current.merge(p.Defaults()), nil
}
