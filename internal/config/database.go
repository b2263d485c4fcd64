package config

import "promotion-engine/internal/infrastructure/database"

// DBConfig maps the database section to the connection settings.
func (c *Config) DBConfig() *database.DBConfig {
	return &database.DBConfig{
		Host:              c.Database.Host,
		Port:              c.Database.Port,
		Username:          c.Database.User,
		Password:          c.Database.Password,
		DBName:            c.Database.Name,
		SSLMode:           c.Database.SSLMode,
		MaxConns:          c.Database.MaxConns,
		MinConns:          c.Database.MinConns,
		MaxConnLifetime:   c.Database.MaxConnLifetime,
		MaxConnIdleTime:   c.Database.MaxConnIdleTime,
		HealthCheckPeriod: c.Database.HealthCheckPeriod,
		MaxRetries:        c.Database.MaxRetries,
		RetryDelay:        c.Database.RetryDelay,
		ConnectTimeout:    c.Database.ConnectTimeout,
	}
}
