package config

import (
	"os"
	"strconv"
	"time"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	Name          string        `yaml:"name"`
	MaxConns      int32         `yaml:"max_conns"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL        string `yaml:"url"`
	MaxRetries int64  `yaml:"max_retries"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port              string `yaml:"port"`
	GeneratePerMinute int    `yaml:"generate_per_minute"` // 每个用户每分钟生成排程的次数，0 表示不限
}

// LLMConfig 生成式模型配置，APIKey 为空时只使用本地算法
type LLMConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
}

// SchedulerConfig 排程配置
type SchedulerConfig struct {
	Timezone             string        `yaml:"timezone"`
	TimeFormat           string        `yaml:"time_format"`
	DefaultBudgetMinutes int           `yaml:"default_budget_minutes"`
	DailyCron            string        `yaml:"daily_cron"`
	DraftTTL             time.Duration `yaml:"draft_ttl"`
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideLLMFromEnv 从环境变量覆盖LLM配置
func OverrideLLMFromEnv(cfg *LLMConfig) {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.Model = model
	}
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
}

// OverrideSchedulerFromEnv 从环境变量覆盖排程配置
func OverrideSchedulerFromEnv(cfg *SchedulerConfig) {
	if tz := os.Getenv("SCHEDULER_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	if spec := os.Getenv("SCHEDULER_DAILY_CRON"); spec != "" {
		cfg.DailyCron = spec
	}
}
