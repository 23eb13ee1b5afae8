package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, time.Minute, cfg.Jobs.SweepInterval)
	assert.Equal(t, 200, cfg.Jobs.SweepMaxItems)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_Entorno(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("DB_LOCK_TIMEOUT_MS", "250")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "0")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.DB.LockTimeout)
	assert.Zero(t, cfg.Jobs.SweepInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_Invalida(t *testing.T) {
	cases := map[string]map[string]string{
		"driver desconocido":             {"STORE_DRIVER": "mysql"},
		"memoria en producción":          {"STORE_DRIVER": "memory", "APP_ENV": "production", "JWT_SECRET": "x"},
		"producción sin secret":          {"APP_ENV": "production"},
		"lote de barrido fuera de rango": {"SWEEP_MAX_ITEMS": "5000"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN_CodificaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "estoque", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/estoque?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
