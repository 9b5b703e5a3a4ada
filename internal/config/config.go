package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port    int    `yaml:"port"`
	HostURL string `yaml:"host_url"` // public https base the provider redirects back to
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KakaoPayConfig struct {
	AdminKey   string `yaml:"admin_key"`
	CID        string `yaml:"cid"` // TC0ONETIME in the sandbox
	ReadyURL   string `yaml:"ready_url"`
	ApproveURL string `yaml:"approve_url"`
}

type PaymentConfig struct {
	KakaoPay KakaoPayConfig `yaml:"kakaopay"`
}

type CodeConfig struct {
	DefaultQuota int `yaml:"default_quota"` // quota per successful payment
}

type PromptConfig struct {
	FreeDailyLimit int `yaml:"free_daily_limit"`
}

type AIConfig struct {
	OpenAIKey    string `yaml:"openai_key"`
	GeminiKey    string `yaml:"gemini_key"`
	GeminiURL    string `yaml:"gemini_url"`
	DefaultModel string `yaml:"default_model"`
}

type AdminConfig struct {
	APISecret  string        `yaml:"api_secret"` // HMAC secret for operator sessions
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Code     CodeConfig     `yaml:"code"`
	Prompt   PromptConfig   `yaml:"prompt"`
	AI       AIConfig       `yaml:"ai"`
	Admin    AdminConfig    `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Payment.KakaoPay.CID == "" {
		cfg.Payment.KakaoPay.CID = "TC0ONETIME"
	}
	if cfg.Payment.KakaoPay.ReadyURL == "" {
		cfg.Payment.KakaoPay.ReadyURL = "https://kapi.kakao.com/v1/payment/ready"
	}
	if cfg.Payment.KakaoPay.ApproveURL == "" {
		cfg.Payment.KakaoPay.ApproveURL = "https://kapi.kakao.com/v1/payment/approve"
	}
	if cfg.Code.DefaultQuota <= 0 {
		cfg.Code.DefaultQuota = 100
	}
	if cfg.Prompt.FreeDailyLimit <= 0 {
		cfg.Prompt.FreeDailyLimit = 5
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	cfg.Server.HostURL = strings.TrimRight(cfg.Server.HostURL, "/")

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.KakaoPay.AdminKey == "" && !dev {
		return nil, errors.New("payment.kakaopay.admin_key is required")
	}
	if cfg.Server.HostURL == "" {
		return nil, errors.New("server.host_url is required (provider callbacks must be publicly reachable)")
	}
	if cfg.Admin.APISecret == "" && !dev {
		return nil, errors.New("admin.api_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
