package config

import "slices"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// GameChanged is set when any game rule changed. Game rules apply to
	// the next transition of every session.
	GameChanged bool

	// RestartRequired lists sections that changed but are only read at
	// startup.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.GameChanged = !gameEqual(old.Game, new.Game)

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Discord != new.Discord {
		d.RestartRequired = append(d.RestartRequired, "discord")
	}
	if !dataEqual(old.Data, new.Data) {
		d.RestartRequired = append(d.RestartRequired, "data")
	}
	if old.Stats != new.Stats {
		d.RestartRequired = append(d.RestartRequired, "stats")
	}
	return d
}

func gameEqual(a, b GameConfig) bool {
	return a.TimeUnit == b.TimeUnit &&
		a.NormalTurns == b.NormalTurns &&
		a.PKTurns == b.PKTurns &&
		a.ArcadeTurns == b.ArcadeTurns &&
		a.StartAttempts == b.StartAttempts &&
		a.Warnings == b.Warnings &&
		slices.Equal(a.ExcludedStartWords, b.ExcludedStartWords) &&
		slices.Equal(a.Categories, b.Categories)
}

func dataEqual(a, b DataConfig) bool {
	return a.Pinyin == b.Pinyin &&
		a.Phonetic == b.Phonetic &&
		a.Leading == b.Leading &&
		a.Trailing == b.Trailing &&
		a.Variants == b.Variants &&
		a.UnknownReport == b.UnknownReport &&
		slices.Equal(a.Vocabulary, b.Vocabulary)
}
