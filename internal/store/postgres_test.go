package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFound(t *testing.T) {
	err := notFound(sql.ErrNoRows, "query bus %q", "B-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `query bus "B-1": not found`, err.Error())

	boom := errors.New("connection reset")
	err = notFound(boom, "query route %d", 7)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpenAppliesPoolLimits(t *testing.T) {
	// sql.Open does not dial, so an unreachable DSN is fine here.
	pg, err := Open("postgres://user@127.0.0.1:1/transport?sslmode=disable", PoolOptions{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	defer pg.Close()

	assert.Equal(t, 15, pg.Stats().MaxOpenConnections)
}

var _ Store = (*Postgres)(nil)
var _ Store = (*Memory)(nil)
