package model

import (
	"fmt"
	"time"
)

// Config describes where the model lives and how to reach the inference
// server that hosts it.
//
// Environment Variables (see internal/config):
// - MODEL_PATH: local checkpoint directory (default: app/model)
// - MODEL_SERVER_URL: inference server base URL (default: http://127.0.0.1:8081)
// - MODEL_API_KEY: bearer token for the inference server (optional)
// - MODEL_TIMEOUT: request timeout in seconds (default: 60)
type Config struct {
	ModelPath string `json:"model_path"`
	ServerURL string `json:"server_url"`
	APIKey    string `json:"-"`
	Timeout   int    `json:"timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetHeaders returns the headers sent with every inference request
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if c.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	return headers
}
