package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 8080
kafka:
  brokers:
    - 127.0.0.1:9092
  topic:
    order_settled: t.order
    wallet_changed: t.wallet
auth:
  jwt_secret: s3cret
  token_ttl_minutes: 1440
webhook:
  secret: hook-secret
providers:
  jk:
    app_secret: provider-secret
    valid_game_keys:
      - fruitspin
      - luckydice
  nokey:
    app_secret: ""
    valid_game_keys:
      - fruitspin
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg := LoadConfig(path)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "t.order", cfg.Kafka.Topic.OrderSettled)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "hook-secret", cfg.Webhook.Secret)

	secret, ok := cfg.ProviderSecret("jk")
	assert.True(t, ok)
	assert.Equal(t, "provider-secret", secret)

	// 密钥为空视同未配置
	_, ok = cfg.ProviderSecret("nokey")
	assert.False(t, ok)
	_, ok = cfg.ProviderSecret("unknown")
	assert.False(t, ok)

	assert.True(t, cfg.ValidGame("jk", "fruitspin"))
	assert.True(t, cfg.ValidGame("jk", "luckydice"))
	assert.False(t, cfg.ValidGame("jk", "othergame"))
	assert.False(t, cfg.ValidGame("unknown", "fruitspin"))
}
