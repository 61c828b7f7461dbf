package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/serialguard/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Discord      DiscordConfig      `mapstructure:"discord"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	GameServer   GameServerConfig   `mapstructure:"game_server"`
	Verification VerificationConfig `mapstructure:"verification"`
	Application  ApplicationConfig  `mapstructure:"application"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
	SweepCron   string         `mapstructure:"sweep_cron"`
}

// DiscordConfig Discord 机器人配置
type DiscordConfig struct {
	Token               string `mapstructure:"token"`
	ApplicationID       string `mapstructure:"application_id"`
	GuildID             string `mapstructure:"guild_id"`
	AdminRoleID         string `mapstructure:"admin_role_id"`
	SubmissionChannelID string `mapstructure:"submission_channel_id"`
	LogChannelID        string `mapstructure:"log_channel_id"`
}

// WebhookConfig 游戏服务器入服回调配置
type WebhookConfig struct {
	Secret        string `mapstructure:"secret"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	MaxRequests   int    `mapstructure:"max_requests"`
}

// GameServerConfig 游戏服务器控制接口配置
type GameServerConfig struct {
	ControlURL string `mapstructure:"control_url"`
	Secret     string `mapstructure:"secret"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// Timeout 返回控制接口调用超时
func (c GameServerConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// VerificationConfig 临时验证配置
type VerificationConfig struct {
	SessionTTLSeconds    int `mapstructure:"session_ttl_seconds"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// SessionTTL 返回临时验证有效期
func (c VerificationConfig) SessionTTL() time.Duration {
	if c.SessionTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// SweepInterval 返回过期清理间隔
func (c VerificationConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// ApplicationConfig 白名单申请配置
type ApplicationConfig struct {
	MaxReapply int `mapstructure:"max_reapply"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	setDefaults(viper.GetViper())

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // discord.token -> DISCORD_TOKEN

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "bot.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/serialguard.db")
	v.SetDefault("database.pool.max_open_conns", 10)
	v.SetDefault("database.pool.max_idle_conns", 2)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sg")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.queues", map[string]int{
		"default": 1,
	})
	v.SetDefault("queue.sweep_cron", "@every 5m")
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.application_id", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("discord.admin_role_id", "")
	v.SetDefault("discord.submission_channel_id", "")
	v.SetDefault("discord.log_channel_id", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.window_seconds", 60)
	v.SetDefault("webhook.max_requests", 120)
	v.SetDefault("game_server.control_url", "")
	v.SetDefault("game_server.secret", "")
	v.SetDefault("game_server.timeout_ms", 3000)
	v.SetDefault("verification.session_ttl_seconds", 300)
	v.SetDefault("verification.sweep_interval_seconds", 300)
	v.SetDefault("application.max_reapply", 1)
}
