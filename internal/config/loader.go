package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig 加载配置文件
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// 默认配置文件搜索路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ragversate")
		v.AddConfigPath("/etc/ragversate")
	}

	// 支持环境变量
	v.SetEnvPrefix("RAGVERSATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果是找不到配置文件，则使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 替换环境变量
	expandEnvVars(&config)

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 环境标识
	v.SetDefault("environment", "development")

	// Server 默认配置
	v.SetDefault("server.http.enabled", true)
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.debug", false)

	// Cache 默认配置
	v.SetDefault("cache.active_mode", "general")
	v.SetDefault("cache.modes", []map[string]any{
		{"name": "general", "dsn": "./data/general.db", "description": "通用实体缓存"},
		{"name": "research", "dsn": "./data/research.db", "description": "深度检索实体缓存"},
	})
	v.SetDefault("cache.warm_limit", 100)
	v.SetDefault("cache.working_set_size", 512)

	// Search 默认配置
	v.SetDefault("search.base_url", "https://google.serper.dev/search")
	v.SetDefault("search.timeout", 8)
	v.SetDefault("search.max_results", 5)

	// LLM 默认配置
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.model", "gpt-4o-mini")

	// Personalization 默认配置
	v.SetDefault("personalization.enabled", false)
	v.SetDefault("personalization.redis_addr", "127.0.0.1:6379")
	v.SetDefault("personalization.redis_db", 0)
	v.SetDefault("personalization.ttl", 3600)
	v.SetDefault("personalization.history_limit", 20)
}

// expandEnvVars 展开环境变量
func expandEnvVars(config *Config) {
	config.Search.APIKey = os.ExpandEnv(config.Search.APIKey)
	config.LLM.APIKey = os.ExpandEnv(config.LLM.APIKey)
	config.Personalization.RedisPassword = os.ExpandEnv(config.Personalization.RedisPassword)
}
