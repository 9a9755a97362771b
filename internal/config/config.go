package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Ollama  OllamaConfig  `json:"ollama"`
	Voice   VoiceConfig   `json:"voice"`
	Store   StoreConfig   `json:"store"`
	Chat    ChatConfig    `json:"chat"`
	Summary SummaryConfig `json:"summary"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type OllamaConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

type VoiceConfig struct {
	// Endpoint is the realtime voice channel the client dials.
	Endpoint   string `json:"endpoint"`
	SampleRate int    `json:"sample_rate"`
	// SubmitDebounce delays auto-submission of a final transcript.
	SubmitDebounce time.Duration `json:"submit_debounce"`
}

type StoreConfig struct {
	Path string `json:"path"`
	// MaxConversations caps the retained history; oldest beyond the cap
	// are evicted silently.
	MaxConversations int `json:"max_conversations"`
}

type ChatConfig struct {
	Temperature    float64       `json:"temperature"`
	Timeout        time.Duration `json:"timeout"`
	AnalyzeTimeout time.Duration `json:"analyze_timeout"`
}

type SummaryConfig struct {
	Timeout time.Duration `json:"timeout"`
	// MaxTitleLength bounds generated conversation titles.
	MaxTitleLength int `json:"max_title_length"`
	// RefreshEvery regenerates the title when the message count is a
	// multiple of this value.
	RefreshEvery int `json:"refresh_every"`
	// MaxMessages limits how many leading messages are summarized.
	MaxMessages int `json:"max_messages"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".voxchat"))
	}

	setDefaults()

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := defaultConfig()
			loadEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("ollama.base_url", "http://localhost:11434")
	viper.SetDefault("ollama.model", "llama3.2:latest")
	viper.SetDefault("voice.endpoint", "ws://localhost:3000/ws/voice")
	viper.SetDefault("voice.sample_rate", 16000)
	viper.SetDefault("voice.submit_debounce", 300*time.Millisecond)
	viper.SetDefault("store.path", defaultStorePath())
	viper.SetDefault("store.max_conversations", 50)
	viper.SetDefault("chat.temperature", 0.7)
	viper.SetDefault("chat.timeout", 60*time.Second)
	viper.SetDefault("chat.analyze_timeout", 10*time.Second)
	viper.SetDefault("summary.timeout", 30*time.Second)
	viper.SetDefault("summary.max_title_length", 50)
	viper.SetDefault("summary.refresh_every", 5)
	viper.SetDefault("summary.max_messages", 10)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 3000,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2:latest",
		},
		Voice: VoiceConfig{
			Endpoint:       "ws://localhost:3000/ws/voice",
			SampleRate:     16000,
			SubmitDebounce: 300 * time.Millisecond,
		},
		Store: StoreConfig{
			Path:             defaultStorePath(),
			MaxConversations: 50,
		},
		Chat: ChatConfig{
			Temperature:    0.7,
			Timeout:        60 * time.Second,
			AnalyzeTimeout: 10 * time.Second,
		},
		Summary: SummaryConfig{
			Timeout:        30 * time.Second,
			MaxTitleLength: 50,
			RefreshEvery:   5,
			MaxMessages:    10,
		},
	}
}

func defaultStorePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "voxchat.db"
	}
	return filepath.Join(homeDir, ".voxchat", "conversations.db")
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("VOXCHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("VOXCHAT_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if url := os.Getenv("OLLAMA_API_URL"); url != "" {
		cfg.Ollama.BaseURL = url
	}
	if model := os.Getenv("MODEL_NAME"); model != "" {
		cfg.Ollama.Model = model
	}
	if path := os.Getenv("VOXCHAT_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
}
