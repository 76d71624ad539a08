package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aniketverma/jarvis-portfolio/internal/handlers"
	"github.com/aniketverma/jarvis-portfolio/internal/services"
	"gopkg.in/yaml.v3"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

type llmConfig interface {
	llm(logger *slog.Logger) (handlers.LLM, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider   string                 `yaml:"provider"`
	Model      string                 `yaml:"model"`
	Parameters services.LLMParameters `yaml:"parameters"`
}

type config struct {
	Port           string    `yaml:"port"`
	LogLevel       string    `yaml:"logLevel"`
	DBPath         string    `yaml:"dbPath"`
	SeedFile       string    `yaml:"seedFile"`
	SystemPrompt   string    `yaml:"systemPrompt"`
	AllowedOrigins []string  `yaml:"allowedOrigins"`
	LLM            llmConfig `yaml:"llm"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	Endpoint      string `yaml:"endpoint"`
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port           string         `yaml:"port"`
		LogLevel       string         `yaml:"logLevel"`
		DBPath         string         `yaml:"dbPath"`
		SeedFile       string         `yaml:"seedFile"`
		SystemPrompt   string         `yaml:"systemPrompt"`
		AllowedOrigins []string       `yaml:"allowedOrigins"`
		LLM            map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.LogLevel = rawConfig.LogLevel
	c.DBPath = rawConfig.DBPath
	c.SeedFile = rawConfig.SeedFile
	c.SystemPrompt = rawConfig.SystemPrompt
	c.AllowedOrigins = rawConfig.AllowedOrigins

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "ollama":
		llm = &ollamaConfig{}
	case "openai":
		llm = &openAIConfig{}
	case "openrouter":
		llm = &openAIConfig{BaseURL: openRouterBaseURL}
	case "anthropic":
		llm = &anthropicConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

func (c config) logLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (o ollamaConfig) llm(*slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	return services.NewOllama(host, o.Model, o.Parameters), nil
}

func (o openAIConfig) llm(logger *slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" && o.Provider == "openrouter" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return services.NewOpenAI(apiKey, o.BaseURL, o.Model, o.Parameters, logger), nil
}

func (a anthropicConfig) llm(*slog.Logger) (handlers.LLM, error) {
	if a.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return services.NewAnthropic(apiKey, a.Endpoint, a.Model, a.Parameters), nil
}
