package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"taskplanner/pkg/config"
)

type Config struct {
	Env       string                 `yaml:"-"`
	Server    config.ServerConfig    `yaml:"server"`
	DB        config.DBConfig        `yaml:"db"`
	Redis     config.RedisConfig     `yaml:"redis"`
	MQ        config.MQConfig        `yaml:"mq"`
	JWT       config.JWTConfig       `yaml:"jwt"`
	LLM       config.LLMConfig       `yaml:"llm"`
	Scheduler config.SchedulerConfig `yaml:"scheduler"`

	// Location 由 Scheduler.Timezone 解析得到
	Location *time.Location `yaml:"-"`
}

// Load 使用 CONFIG_ENV / CONFIG_DIR 加载配置
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetConfigDir())
}

func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config
	if err := config.LoadConfig(env, dir, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Env = env

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideLLMFromEnv(&cfg.LLM)
	config.OverrideSchedulerFromEnv(&cfg.Scheduler)

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler.timezone %q: %w", cfg.Scheduler.Timezone, err)
	}
	cfg.Location = loc
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.DB.MaxConns <= 0 {
		c.DB.MaxConns = 10
	}
	if c.MQ.MaxRetries <= 0 {
		c.MQ.MaxRetries = 3
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 10 * time.Second
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "UTC"
	}
	if c.Scheduler.DefaultBudgetMinutes <= 0 {
		c.Scheduler.DefaultBudgetMinutes = 240
	}
	if c.Scheduler.DailyCron == "" {
		c.Scheduler.DailyCron = "0 7 * * *"
	}
	if c.Scheduler.DraftTTL <= 0 {
		c.Scheduler.DraftTTL = 24 * time.Hour
	}
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.DB.Host == "" {
		errs = append(errs, errors.New("db.host is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.MQ.URL == "" {
		errs = append(errs, errors.New("mq.url is required"))
	}
	if c.LLM.RatePerSec < 0 {
		errs = append(errs, errors.New("llm.rate_per_sec must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr http.Server 监听地址，兼容 "8080" 和 ":8080"
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}
