package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// overrides and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Data
	if cfg.Data.Pinyin == "" {
		errs = append(errs, errors.New("data.pinyin is required"))
	}
	if len(cfg.Data.Vocabulary) == 0 {
		errs = append(errs, errors.New("data.vocabulary needs at least one library file"))
	}
	for i, p := range cfg.Data.Vocabulary {
		if p == "" {
			errs = append(errs, fmt.Errorf("data.vocabulary[%d] is empty", i))
		}
	}
	if cfg.Data.Phonetic == "" {
		slog.Warn("data.phonetic is empty; tone-marked readings will not be reduced to tone codes")
	}

	// Game
	g := cfg.Game
	if g.TimeUnit < 0 {
		errs = append(errs, fmt.Errorf("game.time_unit %v must not be negative", g.TimeUnit))
	}
	for name, v := range map[string]int{
		"normal_turns":   g.NormalTurns,
		"pk_turns":       g.PKTurns,
		"arcade_turns":   g.ArcadeTurns,
		"start_attempts": g.StartAttempts,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("game.%s %d must not be negative", name, v))
		}
	}
	groups := make(map[string]int, len(g.Categories))
	for i, c := range g.Categories {
		prefix := fmt.Sprintf("game.categories[%d]", i)
		if c.Group == "" {
			errs = append(errs, fmt.Errorf("%s.group is required", prefix))
		} else {
			if prev, ok := groups[c.Group]; ok {
				errs = append(errs, fmt.Errorf("%s.group %q is a duplicate of game.categories[%d]", prefix, c.Group, prev))
			}
			groups[c.Group] = i
		}
		if c.Label == "" {
			errs = append(errs, fmt.Errorf("%s.label is required", prefix))
		}
	}

	// Stats
	if cfg.Stats.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("stats.queue_size %d must not be negative", cfg.Stats.QueueSize))
	}
	if cfg.Stats.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("stats.max_failures %d must not be negative", cfg.Stats.MaxFailures))
	}
	if cfg.Stats.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("stats.cooldown %v must not be negative", cfg.Stats.Cooldown))
	}

	// Discord
	if cfg.Discord.Token == "" {
		slog.Warn("discord.token is empty; the chat adapter is disabled")
	}
	if cfg.Discord.AdminRoleID != "" && cfg.Discord.AdminRoleID == cfg.Discord.ModeratorRoleID {
		errs = append(errs, errors.New("discord.admin_role_id and discord.moderator_role_id must differ"))
	}

	return errors.Join(errs...)
}
