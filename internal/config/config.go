// Package config содержит логику чтения конфигурации магазина пополнений.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации магазина пополнений.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	StorePath   string `env:"STORE_PATH"`
	AdminPhone  string `env:"ADMIN_PHONE"`
	AuthSecret  string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStorePath := cfg.StorePath
	envAdminPhone := cfg.AdminPhone
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "PostgreSQL URI; empty selects the file store")
	flag.StringVar(&cfg.StorePath, "f", "topup.db", "path to the file store")
	flag.StringVar(&cfg.AdminPhone, "admin-phone", "", "phone number of the administrator account")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envStorePath != "" {
		cfg.StorePath = envStorePath
	}
	if envAdminPhone != "" {
		cfg.AdminPhone = envAdminPhone
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "topup.db"
	}

	return cfg, nil
}
