package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameron-eth/firstballotETL/internal/config"
)

func TestOptionsFor(t *testing.T) {
	cfg := &config.Config{DBPoolMinConns: 2, DBPoolMaxConns: 8, DBPoolMaxLife: 15 * time.Minute}
	opts := OptionsFor(cfg, "postgres://u:p@localhost:5432/fb")

	assert.Equal(t, "postgres://u:p@localhost:5432/fb", opts.URL)
	assert.Equal(t, 2, opts.MinConns)
	assert.Equal(t, 8, opts.MaxConns)
	assert.Equal(t, 15*time.Minute, opts.MaxConnLifetime)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), Options{URL: "://not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database URL")
}
