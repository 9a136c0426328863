package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL              string `yaml:"ttl"`
		QuestionCount    int    `yaml:"question_count"`
		ScoreThreshold   int    `yaml:"score_threshold"`
		QuestionDuration string `yaml:"question_duration"`
		TrackUsage       *bool  `yaml:"track_usage"`
	} `yaml:"quiz"`
	Admin struct {
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"admin"`
	Images struct {
		Dir               string   `yaml:"dir"`
		MaxBytes          int64    `yaml:"max_bytes"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"images"`
}

// Load reads .env (when present), then the YAML config at path, then environment overrides.
// A missing config file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"PORT":           &cfg.Server.Port,
		"LOG_LEVEL":      &cfg.Log.Level,
		"REDIS_ADDR":     &cfg.Redis.Addr,
		"REDIS_PASSWORD": &cfg.Redis.Password,
		"DATABASE_URL":   &cfg.Postgres.URL,
		"ADMIN_USERNAME": &cfg.Admin.Username,
		"ADMIN_PASSWORD": &cfg.Admin.Password,
		"JWT_SECRET":     &cfg.Admin.JWTSecret,
		"IMAGES_DIR":     &cfg.Images.Dir,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Quiz.QuestionCount <= 0 {
		cfg.Quiz.QuestionCount = 10
	}
	if cfg.Quiz.QuestionDuration == "" {
		cfg.Quiz.QuestionDuration = "300s"
	}
	if cfg.Quiz.TrackUsage == nil {
		track := true
		cfg.Quiz.TrackUsage = &track
	}
	if cfg.Admin.TokenTTL == "" {
		cfg.Admin.TokenTTL = "12h"
	}
	if cfg.Images.Dir == "" {
		cfg.Images.Dir = "uploads"
	}
	if cfg.Images.MaxBytes <= 0 {
		cfg.Images.MaxBytes = 5 << 20
	}
	if len(cfg.Images.AllowedExtensions) == 0 {
		cfg.Images.AllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}
	}
	for i, ext := range cfg.Images.AllowedExtensions {
		cfg.Images.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
