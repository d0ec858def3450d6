package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
// 启动时加载一次，之后只读不改；对接方密钥等敏感配置全部走这里，
// 运行期不允许任何组件修改
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	MySQL     MySQLConfig               `mapstructure:"mysql"`
	Redis     RedisConfig               `mapstructure:"redis"`
	Kafka     KafkaConfig               `mapstructure:"kafka"`
	Auth      AuthConfig                `mapstructure:"auth"`
	Webhook   WebhookConfig             `mapstructure:"webhook"`
	Mail      MailConfig                `mapstructure:"mail"`
	Business  BusinessConfig            `mapstructure:"business"`
	Providers map[string]ProviderConfig `mapstructure:"providers"` // app_key -> 对接方配置
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	OrderSettled  string `mapstructure:"order_settled"`
	WalletChanged string `mapstructure:"wallet_changed"`
}

type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"`
	TokenTTLMinutes      int    `mapstructure:"token_ttl_minutes"`       // 普通登录令牌有效期
	GameTokenTTLMinutes  int    `mapstructure:"game_token_ttl_minutes"`  // 游戏登录令牌有效期
	ResetTokenTTLMinutes int    `mapstructure:"reset_token_ttl_minutes"` // 密码重置令牌有效期
}

type WebhookConfig struct {
	Secret string `mapstructure:"secret"` // 回调推送的整包 HMAC 密钥，与 sign_v2 密钥相互独立
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	ResetURL string `mapstructure:"reset_url"` // 重置密码页面前缀
}

type BusinessConfig struct {
	MaxRetryCount int `mapstructure:"max_retry_count"`
}

// ProviderConfig 对接方（游戏提供方）配置
type ProviderConfig struct {
	AppSecret     string   `mapstructure:"app_secret"`
	ValidGameKeys []string `mapstructure:"valid_game_keys"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}

// ProviderSecret 按 app_key 查找对接方密钥
func (c *Config) ProviderSecret(appKey string) (string, bool) {
	p, ok := c.Providers[appKey]
	if !ok || p.AppSecret == "" {
		return "", false
	}
	return p.AppSecret, true
}

// ValidGame app_key 是否允许操作该 game_key
func (c *Config) ValidGame(appKey, gameKey string) bool {
	p, ok := c.Providers[appKey]
	if !ok {
		return false
	}
	for _, k := range p.ValidGameKeys {
		if k == gameKey {
			return true
		}
	}
	return false
}
