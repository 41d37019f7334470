package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	System   SystemConfig   `mapstructure:"system"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// QueueConfig 工作队列配置
type QueueConfig struct {
	// Backend 队列后端：db（跨进程持久化）或 memory（单机/测试）
	Backend string `mapstructure:"backend"`
	// VisibilityTimeout 可见性超时：出队后任务对其他消费者不可见的租约时长，
	// 必须大于最坏情况下的决策耗时加网络往返
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	// PollInterval 阻塞出队时的轮询间隔
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// WorkerConfig 工作协程配置
type WorkerConfig struct {
	// Count 工作协程数量
	Count int `mapstructure:"count"`
	// PopTimeout 单次阻塞出队的最长等待时间
	PopTimeout time.Duration `mapstructure:"pop_timeout"`
	// IdleBackoff 队列为空时的等待时间
	IdleBackoff time.Duration `mapstructure:"idle_backoff"`
	// ErrorBackoff 瞬时错误后的退避时间
	ErrorBackoff time.Duration `mapstructure:"error_backoff"`
	// MaxMoves 单局游戏的最大移动数，超过后不再重新入队
	MaxMoves int `mapstructure:"max_moves"`
	// Fallback 死路回退策略：backtrack（回退到上一篇文章）或 abandon（放弃该局）
	Fallback string `mapstructure:"fallback"`
}

// AgentConfig 移动决策配置
type AgentConfig struct {
	// Provider 决策实现：heuristic（本地启发式）或 llm（OpenAI兼容接口）
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// MaxAttempts 模型返回无效链接时的最大重问次数
	MaxAttempts int `mapstructure:"max_attempts"`
}

// AuthConfig 管理接口认证配置
type AuthConfig struct {
	// Username 运维账号用户名
	Username string `mapstructure:"username"`
	// PasswordHash 运维账号密码的argon2id哈希
	PasswordHash string        `mapstructure:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenExpiry  time.Duration `mapstructure:"token_expiry"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	Timezone string `mapstructure:"timezone"`
	MaxProcs int    `mapstructure:"max_procs"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("WIKI_GAME")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		if err = v.Unmarshal(cfg); err != nil {
			return
		}

		err = validate(cfg)
	})

	return err
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/wiki-game.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// 队列默认配置
	v.SetDefault("queue.backend", "db")
	v.SetDefault("queue.visibility_timeout", "2m")
	v.SetDefault("queue.poll_interval", "200ms")

	// 工作协程默认配置
	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.pop_timeout", "5s")
	v.SetDefault("worker.idle_backoff", "1s")
	v.SetDefault("worker.error_backoff", "3s")
	v.SetDefault("worker.max_moves", 30)
	v.SetDefault("worker.fallback", "backtrack")

	// 决策默认配置
	v.SetDefault("agent.provider", "heuristic")
	v.SetDefault("agent.base_url", "http://localhost:11434/v1")
	v.SetDefault("agent.model", "qwen3:0.6b")
	v.SetDefault("agent.timeout", "60s")
	v.SetDefault("agent.max_attempts", 3)

	// 认证默认配置
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_expiry", "24h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "wiki-game.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 系统默认配置
	v.SetDefault("system.timezone", "UTC")
	v.SetDefault("system.max_procs", 0)
}

// validate 校验关键配置项
func validate(c *Config) error {
	if c.Queue.VisibilityTimeout <= 0 {
		return fmt.Errorf("queue.visibility_timeout 必须大于0")
	}
	if c.Queue.VisibilityTimeout <= c.Agent.Timeout {
		// 租约必须长于最坏情况的决策耗时，否则会出现误判重投
		return fmt.Errorf("queue.visibility_timeout (%s) 必须大于 agent.timeout (%s)",
			c.Queue.VisibilityTimeout, c.Agent.Timeout)
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count 必须大于0")
	}
	switch c.Worker.Fallback {
	case "backtrack", "abandon":
	default:
		return fmt.Errorf("不支持的回退策略: %s", c.Worker.Fallback)
	}
	switch c.Queue.Backend {
	case "db", "memory":
	default:
		return fmt.Errorf("不支持的队列后端: %s", c.Queue.Backend)
	}
	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := validate(newCfg); err != nil {
			fmt.Printf("配置重载校验失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}
	})
}

// Default 返回默认配置（用于测试）
func Default() *Config {
	dv := viper.New()
	setDefaults(dv)
	c := &Config{}
	if err := dv.Unmarshal(c); err != nil {
		panic(err)
	}
	return c
}
