package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings holds all tabwarden configuration.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server" json:"server"`
	Database DatabaseSettings `mapstructure:"database" json:"database"`
	Sweep    SweepSettings    `mapstructure:"sweep" json:"sweep"`
	Grouping GroupingSettings `mapstructure:"grouping" json:"grouping"`
	LLM      LLMSettings      `mapstructure:"llm" json:"llm"`
}

type ServerSettings struct {
	Bind string `mapstructure:"bind" json:"bind"`
	Port int    `mapstructure:"port" json:"port"`
}

type DatabaseSettings struct {
	Path string `mapstructure:"path" json:"path"`
}

type SweepSettings struct {
	IntervalMinutes int `mapstructure:"interval_minutes" json:"interval_minutes"`

	Duplicates bool `mapstructure:"duplicates" json:"duplicates"`

	Idle       bool   `mapstructure:"idle" json:"idle"`
	IdleAmount int    `mapstructure:"idle_amount" json:"idle_amount"`
	IdleUnit   string `mapstructure:"idle_unit" json:"idle_unit"` // "minute", "hour", "day"

	Memory            bool `mapstructure:"memory" json:"memory"`
	MemoryThresholdMB int  `mapstructure:"memory_threshold_mb" json:"memory_threshold_mb"`
}

type GroupingSettings struct {
	Mode string `mapstructure:"mode" json:"mode"` // "group" or "window"
}

type LLMSettings struct {
	Provider     string `mapstructure:"provider" json:"provider"` // "anthropic", "ollama"
	Model        string `mapstructure:"model" json:"model"`
	AnthropicKey string `mapstructure:"anthropic_key" json:"-"`
	OllamaURL    string `mapstructure:"ollama_url" json:"ollama_url"`
	OllamaModel  string `mapstructure:"ollama_model" json:"ollama_model"`
}

// IdleThreshold converts the configured amount + unit into a duration.
func (s SweepSettings) IdleThreshold() time.Duration {
	unit := time.Minute
	switch s.IdleUnit {
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	}
	return time.Duration(s.IdleAmount) * unit
}

// ListenAddr returns the bind:port address string.
func (s Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Server.Bind, s.Server.Port)
}

// Default returns Settings with sensible defaults.
func Default() Settings {
	return Settings{
		Server:   ServerSettings{Bind: "127.0.0.1", Port: 37780},
		Database: DatabaseSettings{Path: ""}, // resolved at runtime via store.DefaultDBPath()
		Sweep: SweepSettings{
			IntervalMinutes:   10,
			Duplicates:        true,
			Idle:              true,
			IdleAmount:        2,
			IdleUnit:          "hour",
			Memory:            false,
			MemoryThresholdMB: 800,
		},
		Grouping: GroupingSettings{Mode: "group"},
		LLM: LLMSettings{
			Provider:    "anthropic",
			Model:       "claude-haiku-4-5-20251001",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "llama3.2",
		},
	}
}

// DefaultConfigPath returns ~/.tabwarden/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".tabwarden", "config.toml"), nil
}

// Manager loads settings and serves consistent snapshots across live reloads.
// Readers always see a whole Settings value — a reload swaps the snapshot in one
// step, never field by field.
type Manager struct {
	mu       sync.RWMutex
	current  Settings
	v        *viper.Viper
	watching bool
}

// Load reads settings from the given config file (optional), layered over
// defaults, with TABWARDEN_* environment overrides.
func Load(path string) (*Manager, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("server.bind", def.Server.Bind)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("sweep.interval_minutes", def.Sweep.IntervalMinutes)
	v.SetDefault("sweep.duplicates", def.Sweep.Duplicates)
	v.SetDefault("sweep.idle", def.Sweep.Idle)
	v.SetDefault("sweep.idle_amount", def.Sweep.IdleAmount)
	v.SetDefault("sweep.idle_unit", def.Sweep.IdleUnit)
	v.SetDefault("sweep.memory", def.Sweep.Memory)
	v.SetDefault("sweep.memory_threshold_mb", def.Sweep.MemoryThresholdMB)
	v.SetDefault("grouping.mode", def.Grouping.Mode)
	v.SetDefault("llm.provider", def.LLM.Provider)
	v.SetDefault("llm.model", def.LLM.Model)
	v.SetDefault("llm.anthropic_key", def.LLM.AnthropicKey)
	v.SetDefault("llm.ollama_url", def.LLM.OllamaURL)
	v.SetDefault("llm.ollama_model", def.LLM.OllamaModel)

	v.SetEnvPrefix("TABWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file is fine — defaults + env apply
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &Manager{current: s, v: v}, nil
}

// Get returns the current settings snapshot.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Watch begins watching the config file for changes. On change, the snapshot is
// re-read and replaced atomically; a malformed edit keeps the previous snapshot.
func (m *Manager) Watch() {
	m.mu.Lock()
	if m.watching || m.v.ConfigFileUsed() == "" {
		m.mu.Unlock()
		return
	}
	m.watching = true
	m.mu.Unlock()

	m.v.OnConfigChange(func(e fsnotify.Event) {
		var s Settings
		if err := m.v.Unmarshal(&s); err != nil {
			log.Printf("config: reload failed, keeping previous settings: %v", err)
			return
		}
		m.mu.Lock()
		m.current = s
		m.mu.Unlock()
		log.Printf("config: reloaded from %s", e.Name)
	})
	m.v.WatchConfig()
}
