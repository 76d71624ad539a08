package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// config is read from the environment; flags override it.
type config struct {
	Endpoint      string   `env:"JARVIS_ENDPOINT" envDefault:"ws://127.0.0.1:8000/ws/chat/"`
	APIURL        string   `env:"JARVIS_API_URL" envDefault:"http://127.0.0.1:8000/api"`
	Muted         bool     `env:"JARVIS_MUTED"`
	SpeechCommand string   `env:"JARVIS_SPEECH_COMMAND"`
	Voices        []string `env:"JARVIS_VOICES" envSeparator:","`
	Debug         bool     `env:"JARVIS_DEBUG"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
