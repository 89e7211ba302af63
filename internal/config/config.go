package config

// Config 全局配置
type Config struct {
	Environment     string                `mapstructure:"environment"`
	Server          ServerConfig          `mapstructure:"server"`
	Cache           CacheConfig           `mapstructure:"cache"`
	Search          SearchConfig          `mapstructure:"search"`
	LLM             LLMConfig             `mapstructure:"llm"`
	Personalization PersonalizationConfig `mapstructure:"personalization"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP 服务器配置
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Debug   bool   `mapstructure:"debug"`
}

// CacheConfig 实体缓存配置
type CacheConfig struct {
	ActiveMode     string       `mapstructure:"active_mode"`      // 默认使用的缓存模式
	Modes          []ModeConfig `mapstructure:"modes"`            // 所有可用的缓存模式
	WarmLimit      int          `mapstructure:"warm_limit"`       // 预热时加载的记录数
	WorkingSetSize int          `mapstructure:"working_set_size"` // 每个模式的热点工作集大小
}

// ModeConfig 单个缓存模式配置(一个模式对应一个独立的数据集)
type ModeConfig struct {
	Name        string `mapstructure:"name"`
	DSN         string `mapstructure:"dsn"`
	Description string `mapstructure:"description"`
}

// SearchConfig 外部搜索工具配置
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"`     // 单次搜索超时(秒)
	MaxResults int    `mapstructure:"max_results"` // 单次搜索返回的最大结果数
}

// LLMConfig LLM 配置
type LLMConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// PersonalizationConfig 个性化存储配置
type PersonalizationConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	TTL           int    `mapstructure:"ttl"`           // 缓存过期时间(秒)
	HistoryLimit  int    `mapstructure:"history_limit"` // 读取历史时的最大条数
}

// GetMode 根据名称获取模式配置
func (c *CacheConfig) GetMode(name string) (*ModeConfig, bool) {
	for i := range c.Modes {
		if c.Modes[i].Name == name {
			return &c.Modes[i], true
		}
	}
	return nil, false
}
