// Package prefs stores per-user UI preferences in redis. It is the
// server-side stand-in for device-local storage: a small fixed schema with
// an explicit load/save lifecycle and defaulting on load.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/healthmate/backend/pkg/logger"
	"github.com/healthmate/backend/pkg/utils"
)

type Preferences struct {
	DarkMode     bool   `json:"darkMode"`
	Language     string `json:"language"`
	ExportFormat string `json:"exportFormat"`
}

var (
	supportedLanguages = map[string]bool{"en": true, "es": true, "fr": true, "de": true, "hi": true}
	supportedFormats   = map[string]bool{"html": true, "json": true, "pdf": true}
)

var ErrInvalidPreference = errors.New("invalid preference value")

func Defaults() Preferences {
	return Preferences{
		DarkMode:     false,
		Language:     "en",
		ExportFormat: "html",
	}
}

type Store struct {
	client *redis.Client
}

func NewStore(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Preference store initialized", zap.String("addr", addr))

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Load returns the user's preferences, or defaults when none were saved.
// Unknown or missing fields fall back to defaults field by field.
func (s *Store) Load(ctx context.Context, userID string) (Preferences, error) {
	data, err := s.client.Get(ctx, key(userID)).Bytes()
	if err == redis.Nil {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("failed to load preferences: %w", err)
	}

	p := Defaults()
	if err := json.Unmarshal(data, &p); err != nil {
		logger.Warn("Stored preferences unreadable, using defaults", zap.Error(err))
		return Defaults(), nil
	}

	if !supportedLanguages[p.Language] {
		p.Language = Defaults().Language
	}
	if !supportedFormats[p.ExportFormat] {
		p.ExportFormat = Defaults().ExportFormat
	}
	return p, nil
}

func (s *Store) Save(ctx context.Context, userID string, p Preferences) error {
	if !supportedLanguages[p.Language] {
		return fmt.Errorf("%w: language %q", ErrInvalidPreference, p.Language)
	}
	if !supportedFormats[p.ExportFormat] {
		return fmt.Errorf("%w: export format %q", ErrInvalidPreference, p.ExportFormat)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := s.client.Set(ctx, key(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	logger.Debug("Preferences saved", zap.String("user_key", utils.ShortHash(userID)))
	return nil
}

func key(userID string) string {
	return "prefs:" + utils.ShortHash(userID)
}
