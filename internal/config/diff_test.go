package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/jielong/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Data:   config.DataConfig{Pinyin: "p.yaml", Vocabulary: []string{"v.yaml"}},
		Game: config.GameConfig{
			TimeUnit:   time.Minute,
			Categories: []config.CategoryConfig{{Group: "character", Label: "角色名"}},
		},
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		mutate      func(*config.Config)
		wantLevel   bool
		wantGame    bool
		wantRestart []string
	}{
		{name: "identical", mutate: func(*config.Config) {}},
		{name: "log level", mutate: func(c *config.Config) { c.Server.LogLevel = config.LogDebug }, wantLevel: true},
		{name: "time unit", mutate: func(c *config.Config) { c.Game.TimeUnit = time.Second }, wantGame: true},
		{name: "warnings", mutate: func(c *config.Config) { c.Game.Warnings = true }, wantGame: true},
		{name: "category label", mutate: func(c *config.Config) { c.Game.Categories[0].Label = "人物" }, wantGame: true},
		{name: "excluded words", mutate: func(c *config.Config) { c.Game.ExcludedStartWords = []string{"娘娘"} }, wantGame: true},
		{name: "vocabulary", mutate: func(c *config.Config) { c.Data.Vocabulary = append(c.Data.Vocabulary, "w.yaml") }, wantRestart: []string{"data"}},
		{
			name: "startup-only sections",
			mutate: func(c *config.Config) {
				c.Server.ListenAddr = ":9090"
				c.Discord.Token = "t"
				c.Stats.QueueSize = 10
			},
			wantRestart: []string{"server.listen_addr", "discord", "stats"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old, updated := baseConfig(), baseConfig()
			tt.mutate(updated)
			d := config.Diff(old, updated)
			if d.LogLevelChanged != tt.wantLevel {
				t.Errorf("LogLevelChanged = %v, want %v", d.LogLevelChanged, tt.wantLevel)
			}
			if tt.wantLevel && d.NewLogLevel != updated.Server.LogLevel {
				t.Errorf("NewLogLevel = %q", d.NewLogLevel)
			}
			if d.GameChanged != tt.wantGame {
				t.Errorf("GameChanged = %v, want %v", d.GameChanged, tt.wantGame)
			}
			if !slices.Equal(d.RestartRequired, tt.wantRestart) {
				t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, tt.wantRestart)
			}
		})
	}
}
