package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `
server:
  port: "9090"
payment:
  epay:
    gateway_url: https://pay.example.com
    merchant_id: "1001"
    merchant_key: secret
    base_url: https://shop.example.com/
catalog:
  products:
    - id: pro_monthly
      name: Pro Monthly
      price: "9.90"
      is_subscription: true
      subscription_period: monthly
    - id: lifetime
      name: Lifetime
      price: "199"
authz:
  support_users: [7, 8]
`

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("default host not applied: %s", cfg.Server.Host)
	}
	if cfg.Order.NumberSuffixDigits != 3 || cfg.Order.MaxCreateAttempts != 5 {
		t.Fatalf("unexpected order defaults: %+v", cfg.Order)
	}
	if len(cfg.Catalog.Products) != 2 || !cfg.Catalog.Products[0].IsSubscription {
		t.Fatalf("unexpected catalog: %+v", cfg.Catalog.Products)
	}
	if len(cfg.Authz.SupportUsers) != 2 || cfg.Authz.SupportUsers[1] != 8 {
		t.Fatalf("unexpected support users: %+v", cfg.Authz.SupportUsers)
	}

	epayCfg := cfg.Payment.Epay.ToEpayConfig()
	if err := epayCfg.Validate(); err != nil {
		t.Fatalf("epay config should be valid: %v", err)
	}
	if epayCfg.NotifyURL() != "https://shop.example.com/api/v1/payments/notify" {
		t.Fatalf("unexpected notify url: %s", epayCfg.NotifyURL())
	}
}

func TestLoadFromEnvOverride(t *testing.T) {
	t.Setenv("PAYMENT_EPAY_MERCHANT_KEY", "from-env")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Payment.Epay.MerchantKey != "from-env" {
		t.Fatalf("env override not applied: %q", cfg.Payment.Epay.MerchantKey)
	}
	if cfg.Payment.Epay.NotifyPath != "/api/v1/payments/notify" {
		t.Fatalf("unexpected default notify path: %s", cfg.Payment.Epay.NotifyPath)
	}
}
