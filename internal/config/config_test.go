package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_ADDR", "")
	t.Setenv("PENDING_ORDER_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxUploadBytes)
	assert.Zero(t, cfg.PendingOrderTTL)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.False(t, cfg.StrictPricing)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PENDING_ORDER_TTL", "30m")
	t.Setenv("STRICT_PRICING", "true")
	t.Setenv("AUTH_RATE_PER_MINUTE", "not-a-number")
	t.Setenv("ENVIRONMENT", "production")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.PendingOrderTTL)
	assert.True(t, cfg.StrictPricing)
	assert.Equal(t, 30, cfg.AuthRatePerMinute)
	assert.True(t, cfg.IsProduction())
}
