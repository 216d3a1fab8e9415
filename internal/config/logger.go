package config

import "go.uber.org/zap"

// NewLogger returns a development logger (console, debug level) outside prod
// and a production logger (JSON, info level) in prod.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.IsProd() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
