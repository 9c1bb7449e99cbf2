// Package config loads npuflow configuration from a YAML file, an optional
// .env file and the process environment.
//
// Precedence, lowest first: config.yml, then environment variables (including
// those loaded from .env). An environment variable maps to a nested key by
// splitting on underscores, so SCHEDULER_WINDOW sets scheduler.window and
// SCHEDULER_SUBMIT_RETRY_MAX_ATTEMPTS sets scheduler.submit_retry.max_attempts.
//
//	var cfg AppConfig
//	err := config.LoadConfig("npuflow", &cfg, config.WithConfigFile(path))
package config
