package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/eduorg-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "edu", Password: "it's secret", Name: "eduorg", SSLMode: "disable"})

	assert.Equal(t, `host=db port=5432 user=edu password='it\'s secret' dbname=eduorg sslmode=disable application_name=eduorg-api timezone=UTC`, dsn)
}

func TestDSNSkipsEmptyValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "edu", Name: "eduorg"})

	assert.NotContains(t, dsn, "password=")
	assert.NotContains(t, dsn, "sslmode=")
}
