package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LLM     LLMConfig
	Server  ServerConfig
	Engine  EngineConfig
	Actions ActionsConfig
	History HistoryConfig
	Log     LogConfig
}

// LLMConfig holds the completion provider configuration
type LLMConfig struct {
	Provider     string  `mapstructure:"provider"` // openai, simulated or echo
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	Temperature  float32 `mapstructure:"temperature"`
	SystemPrompt string  `mapstructure:"system_prompt"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// EngineConfig tunes the conversation loop
type EngineConfig struct {
	Protocol         string        `mapstructure:"protocol"` // structured or sentinel
	Sentinel         string        `mapstructure:"sentinel"`
	MaxActionRounds  int           `mapstructure:"max_action_rounds"`
	TurnTimeout      time.Duration `mapstructure:"turn_timeout"`
	CountInstruction string        `mapstructure:"count_instruction"`
}

// ActionsConfig selects and configures action providers
type ActionsConfig struct {
	Mode        string            `mapstructure:"mode"` // mock or live
	HTTPToken   string            `mapstructure:"http_token"`
	HTTPTimeout time.Duration     `mapstructure:"http_timeout"`
	MCPServers  []MCPServerConfig `mapstructure:"mcp_servers"`
}

// ClientType is the transport used to reach an MCP server
type ClientType string

const (
	ClientTypeSSE            ClientType = "sse"
	ClientTypeStreamableHTTP ClientType = "streamable_http"
	ClientTypeStdio          ClientType = "stdio"
)

// MCPServerConfig describes one MCP server offering tools to actions
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    ClientType        `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// HistoryConfig holds the transcript store configuration
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds the logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "simulated")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4")
	v.SetDefault("llm.temperature", 1)
	// Empty defaults make these keys visible to AMY_* overrides.
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("engine.protocol", "structured")
	v.SetDefault("engine.sentinel", "TRIGGER")
	v.SetDefault("engine.max_action_rounds", 5)
	v.SetDefault("engine.turn_timeout", "60s")
	v.SetDefault("engine.count_instruction", "")
	v.SetDefault("actions.mode", "mock")
	v.SetDefault("actions.http_token", "")
	v.SetDefault("actions.http_timeout", "10s")
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "history.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH), applying defaults and AMY_* environment overrides. A missing
// config file is not an error.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit config file path; an empty path searches
// the working directory for config.yaml.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AMY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", "AMY_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
