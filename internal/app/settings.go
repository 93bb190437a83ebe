package app

import (
	"log/slog"

	"github.com/MrWong99/jielong/internal/chain"
	"github.com/MrWong99/jielong/internal/config"
)

// GameSettings converts the game section of the config. Zero values keep
// the engine defaults; an empty category list keeps the built-in
// categories.
func GameSettings(g config.GameConfig) chain.Settings {
	d := chain.DefaultSettings()
	s := chain.Settings{
		Unit:           g.TimeUnit,
		NormalTurns:    g.NormalTurns,
		PKTurns:        g.PKTurns,
		ArcadeTurns:    g.ArcadeTurns,
		StartAttempts:  g.StartAttempts,
		ExcludedStarts: d.ExcludedStarts,
		Categories:     d.Categories,
		Warnings:       g.Warnings,
	}
	if g.ExcludedStartWords != nil {
		s.ExcludedStarts = g.ExcludedStartWords
	}
	if len(g.Categories) > 0 {
		s.Categories = make([]chain.Category, len(g.Categories))
		for i, c := range g.Categories {
			s.Categories[i] = chain.Category{Group: c.Group, Label: c.Label}
		}
	}
	return s
}

// SlogLevel maps a config log level to its slog level. Unknown values map
// to info.
func SlogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
