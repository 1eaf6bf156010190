package config

import (
	"testing"
	"time"
)

func validConfig() *AppConfig {
	return &AppConfig{
		DatabaseURL:      "postgres://localhost/sales",
		FiscalStartMonth: time.August,
		QueryTimeout:     30 * time.Second,
		Listen:           ":8080",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing database url", func(c *AppConfig) { c.DatabaseURL = "" }},
		{"month too small", func(c *AppConfig) { c.FiscalStartMonth = 0 }},
		{"month too large", func(c *AppConfig) { c.FiscalStartMonth = 13 }},
		{"zero timeout", func(c *AppConfig) { c.QueryTimeout = 0 }},
		{"negative timeout", func(c *AppConfig) { c.QueryTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestReconConfig(t *testing.T) {
	c := validConfig()
	c.FiscalStartMonth = time.April
	c.QueryTimeout = 10 * time.Second

	rc := c.ReconConfig()
	if rc.FiscalStartMonth != time.April {
		t.Errorf("FiscalStartMonth = %v, want April", rc.FiscalStartMonth)
	}
	if rc.QueryTimeout != 10*time.Second {
		t.Errorf("QueryTimeout = %v, want 10s", rc.QueryTimeout)
	}
}
