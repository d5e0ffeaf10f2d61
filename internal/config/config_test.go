package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Valid development config", func(c *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing JWT secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Zero upload size", func(c *Config) { c.ImageMaxUploadSizeMB = 0 }, true},
		{"Production with default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"Production with short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"Production without Firebase project", func(c *Config) {
			c.Env = "production"
			c.FirebaseProjectID = ""
		}, true},
		{"Production fully configured", func(c *Config) {
			c.Env = "production"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:                  "development",
				JWTSecret:            "secure-secret-at-least-32-chars-long",
				Port:                 "8080",
				RedisURL:             "localhost:6379",
				FirebaseProjectID:    "pointchat-test",
				ImageMaxUploadSizeMB: 10,
			}
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
