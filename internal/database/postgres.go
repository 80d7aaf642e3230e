package database

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// buildPostgresDSN renders a keyword/value connection string. Values containing spaces or
// quotes are single-quoted as libpq expects.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	params := []string{
		"host=" + pgQuote(host),
		fmt.Sprintf("port=%d", port),
		"user=" + pgQuote(cfg.User),
		"dbname=" + pgQuote(cfg.Name),
	}
	if cfg.Password != "" {
		params = append(params, "password="+pgQuote(cfg.Password))
	}

	options := maps.Clone(cfg.Options)
	if options == nil {
		options = map[string]string{}
	}
	if _, ok := options["sslmode"]; !ok {
		options["sslmode"] = "disable"
	}
	for _, key := range slices.Sorted(maps.Keys(options)) {
		params = append(params, key+"="+pgQuote(options[key]))
	}

	return strings.Join(params, " "), nil
}

func pgQuote(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}
