// Package configs 管理应用程序配置，包括数据库、存储、缓存和事件队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Storage.Root)
//
// Example accessing DB config:
//
//	dsn := configs.GetConfig().DB.GetDSN()
//	fmt.Println("DSN:", dsn)
//
// Example accessing Storage config:
//
//	storageCfg := configs.GetConfig().Storage
//	fmt.Println("backend:", storageCfg.Backend, "cipher:", storageCfg.Cipher)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/storevault/pkg/rule"
)

// AppVersion 应用版本号.
const AppVersion = "0.3.0"

// EnvPrefix 环境变量前缀，例如 STOREVAULT_STORAGE_ROOT.
const EnvPrefix = "STOREVAULT"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 运维 HTTP 服务配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 元数据数据库配置
		Storage        StorageConfig        `mapstructure:"storage"`         // StorageConfig 物理存储与加密配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储后端配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		Cache          CacheConfig          `mapstructure:"cache"`           // CacheConfig 查询缓存配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件发布开关
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 指标配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 远程后端熔断配置
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时维护任务配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// mu 保护热重载时的 globalConfig.
	mu sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.AutomaticEnv()

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	// 解析到全局配置
	if err := appViper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return err
	}

	mu.Lock()
	globalConfig = cfg
	mu.Unlock()

	reloadConfigs(appViper, cfg.Server.ReloadConfig)

	return nil
}

// Default 返回仅包含默认值的配置，不读取任何文件.
func Default() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	// 默认值总能解析
	_ = v.Unmarshal(&cfg)

	return cfg
}

// Validate 按 rule 标签校验配置.
func Validate(cfg *AppConfig) error {
	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := ValidateOrphanGrace(cfg.Jobs.OrphanGrace, cfg.Storage.OpTimeout); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// ValidateOrphanGrace 孤儿宽限期必须长于单次存储操作超时，否则清理任务可能删除已写入但尚未记录的数据.
// grace 为 0 时按 DefaultOrphanGrace 计算，opTimeout 为 0 表示不限时，不做检查.
func ValidateOrphanGrace(grace, opTimeout time.Duration) error {
	if grace <= 0 {
		grace = DefaultOrphanGrace
	}

	if opTimeout > 0 && grace <= opTimeout {
		return fmt.Errorf("jobs.orphan_grace %s must be longer than storage.op_timeout %s", grace, opTimeout)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var serverConfig ServerConfig

	var dbConfig DBConfig

	var storageConfig StorageConfig

	var s3Config S3Config

	var kvConfig KVConfig

	var cacheConfig CacheConfig

	var mqConfig MQConfig

	var eventsConfig EventsConfig

	var logConfig LogConfig

	var metricsConfig MetricsConfig

	var tracingConfig TracingConfig

	var cbConfig CircuitBreakerConfig

	var jobsConfig JobsConfig

	serverConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	storageConfig.setDefaults(v)
	s3Config.setDefaults(v)
	kvConfig.setDefaults(v)
	cacheConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	cbConfig.setDefaults(v)
	jobsConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Fprintln(os.Stderr, "Config file changed:", e.Name)

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error reloading config: %v\n", err)

			return
		}

		if err := Validate(&cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Rejected reloaded config: %v\n", err)

			return
		}

		mu.Lock()
		// storage 根目录与加密算法在运行期间不可变
		cfg.Storage = globalConfig.Storage
		globalConfig = cfg
		mu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	return &globalConfig
}

// SetConfig 替换全局配置，主要用于测试与嵌入式场景.
func SetConfig(cfg AppConfig) {
	mu.Lock()
	globalConfig = cfg
	mu.Unlock()
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}
