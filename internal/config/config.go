// Package config provides the configuration schema and loader for the
// jielong word-chain server.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
// Fields with an env tag can be overridden from the environment, which keeps
// secrets such as the bot token out of the file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Discord DiscordConfig `yaml:"discord"`
	Data    DataConfig    `yaml:"data"`
	Game    GameConfig    `yaml:"game"`
	Stats   StatsConfig   `yaml:"stats"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the health and metrics endpoint
	// (e.g., ":8080"). Empty disables the HTTP server.
	ListenAddr string `yaml:"listen_addr" env:"JIELONG_LISTEN_ADDR"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level" env:"JIELONG_LOG_LEVEL"`
}

// DiscordConfig configures the chat adapter. An empty Token disables it.
type DiscordConfig struct {
	Token string `yaml:"token" env:"JIELONG_DISCORD_TOKEN"`

	// GuildID scopes slash command registration to one guild. Empty
	// registers global commands.
	GuildID string `yaml:"guild_id" env:"JIELONG_DISCORD_GUILD_ID"`

	// AdminRoleID grants authority level 3.
	AdminRoleID string `yaml:"admin_role_id"`

	// ModeratorRoleID grants authority level 2.
	ModeratorRoleID string `yaml:"moderator_role_id"`

	// ListenMessages lets plain channel messages count as submissions while
	// a session is live.
	ListenMessages bool `yaml:"listen_messages"`
}

// DataConfig names the data files the vocabulary index is built from.
// Changes require a restart.
type DataConfig struct {
	// Pinyin is the reading table: pronunciation keys mapped to characters.
	Pinyin string `yaml:"pinyin"`

	// Phonetic maps tone-marked letters to their base letter and pitch.
	Phonetic string `yaml:"phonetic"`

	// Leading and Trailing are the curated overrides for polyphonic
	// characters at the start and end of a word.
	Leading  string `yaml:"leading"`
	Trailing string `yaml:"trailing"`

	// Variants maps traditional or variant characters to simplified ones.
	Variants string `yaml:"variants"`

	// Vocabulary lists the library files, indexed in order.
	Vocabulary []string `yaml:"vocabulary"`

	// UnknownReport, if set, receives the list of ambiguous uncurated
	// boundary characters after the index is built.
	UnknownReport string `yaml:"unknown_report"`
}

// CategoryConfig is one arcade restriction category.
type CategoryConfig struct {
	Group string `yaml:"group"`
	Label string `yaml:"label"`
}

// GameConfig holds the game rules. All fields are hot-reloadable; zero
// values take the engine defaults.
type GameConfig struct {
	// TimeUnit is the base unit of all turn budgets (e.g., "1m").
	TimeUnit time.Duration `yaml:"time_unit"`

	NormalTurns int `yaml:"normal_turns"`
	PKTurns     int `yaml:"pk_turns"`
	ArcadeTurns int `yaml:"arcade_turns"`

	StartAttempts      int      `yaml:"start_attempts"`
	ExcludedStartWords []string `yaml:"excluded_start_words"`

	// Warnings is the default rejection-message flag of new sessions.
	Warnings bool `yaml:"warnings"`

	// Categories replaces the built-in arcade categories when non-empty.
	Categories []CategoryConfig `yaml:"categories"`
}

// StatsConfig configures play statistics.
type StatsConfig struct {
	// PostgresDSN selects the PostgreSQL store. Empty keeps statistics in
	// memory.
	PostgresDSN string `yaml:"postgres_dsn" env:"JIELONG_POSTGRES_DSN"`

	// QueueSize bounds the number of turns waiting to be written.
	// Default: 256.
	QueueSize int `yaml:"queue_size"`

	// MaxFailures and Cooldown tune the circuit breaker around the store.
	MaxFailures int           `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}
