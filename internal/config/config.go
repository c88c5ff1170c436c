// Package config holds the environment configuration and the directive
// file parser shared by the train and play front ends.
package config

import "os"

// Env holds process-level configuration read from environment variables.
type Env struct {
	DatabaseURL string
	RedisURL    string
}

// LoadEnv reads configuration from environment variables.
func LoadEnv() *Env {
	return &Env{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}
}
