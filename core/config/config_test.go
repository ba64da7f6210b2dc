package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "longpoll"},
		Pricing:  PricingConfig{Source: "file", CatalogPath: "catalog.yaml"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = ""
	cfg.Pricing.Source = ""

	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, PricingSourceFile, cfg.Pricing.Source)
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeWebhookRequiresEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	assert.Error(t, Normalize(cfg))

	cfg.Webhook = WebhookConfig{URL: "https://x", Listen: "0.0.0.0", Port: 8443}
	assert.NoError(t, Normalize(cfg))
}

func TestNormalizeFileSourceNeedsCatalogPath(t *testing.T) {
	cfg := validConfig()
	cfg.Pricing.CatalogPath = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizePostgresSourceNeedsNoPath(t *testing.T) {
	cfg := validConfig()
	cfg.Pricing = PricingConfig{Source: "postgres"}
	assert.NoError(t, Normalize(cfg))
}

func TestNormalizeRejectsUnknownPricingSource(t *testing.T) {
	cfg := validConfig()
	cfg.Pricing.Source = "redis"
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeKnowledgeBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Knowledge.Temperature = 3
	assert.Error(t, Normalize(cfg))

	cfg.Knowledge.Temperature = 0.2
	cfg.Knowledge.TopK = -1
	assert.Error(t, Normalize(cfg))
}
