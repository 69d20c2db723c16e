package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/config"
)

func TestAllowBelowThreshold(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLimiter(rdb, 5, 15*time.Minute)

	mock.ExpectGet("login_failed:a@example.com").RedisNil()
	assert.NoError(t, l.Allow(context.Background(), "A@example.com "))

	mock.ExpectGet("login_failed:a@example.com").SetVal("4")
	assert.NoError(t, l.Allow(context.Background(), "a@example.com"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllowLockedOut(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLimiter(rdb, 5, 15*time.Minute)

	mock.ExpectGet("login_failed:a@example.com").SetVal("5")
	err := l.Allow(context.Background(), "a@example.com")
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeTooManyRequests))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllowFailsOpen(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLimiter(rdb, 5, time.Minute)

	mock.ExpectGet("login_failed:a@example.com").SetErr(errors.New("connection refused"))
	assert.NoError(t, l.Allow(context.Background(), "a@example.com"))
}

func TestRecordFailureSetsWindowOnFirstAttempt(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLimiter(rdb, 5, 15*time.Minute)
	ctx := context.Background()

	mock.ExpectTxPipeline()
	mock.ExpectIncr("login_failed:a@example.com").SetVal(1)
	mock.ExpectExpireNX("login_failed:a@example.com", 15*time.Minute).SetVal(true)
	mock.ExpectTxPipelineExec()
	require.NoError(t, l.RecordFailure(ctx, "a@example.com"))

	// Later failures keep the original window.
	mock.ExpectTxPipeline()
	mock.ExpectIncr("login_failed:a@example.com").SetVal(2)
	mock.ExpectExpireNX("login_failed:a@example.com", 15*time.Minute).SetVal(false)
	mock.ExpectTxPipelineExec()
	require.NoError(t, l.RecordFailure(ctx, "a@example.com"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailureError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLimiter(rdb, 5, time.Minute)

	mock.ExpectTxPipeline()
	mock.ExpectIncr("login_failed:a@example.com").SetErr(errors.New("boom"))
	mock.ExpectExpireNX("login_failed:a@example.com", time.Minute).SetVal(true)
	mock.ExpectTxPipelineExec()
	assert.Error(t, l.RecordFailure(context.Background(), "a@example.com"))
}

func TestRecordFailureExpireErrorIsReported(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLimiter(rdb, 5, time.Minute)

	mock.ExpectTxPipeline()
	mock.ExpectIncr("login_failed:a@example.com").SetVal(1)
	mock.ExpectExpireNX("login_failed:a@example.com", time.Minute).SetErr(errors.New("READONLY"))
	mock.ExpectTxPipelineExec()
	assert.Error(t, l.RecordFailure(context.Background(), "a@example.com"))
}

func TestReset(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLimiter(rdb, 5, time.Minute)

	mock.ExpectDel("login_failed:a@example.com").SetVal(1)
	assert.NoError(t, l.Reset(context.Background(), "a@example.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDisabledIsNoop(t *testing.T) {
	cfg := config.Default()
	l, closeFn, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, l)
	assert.NoError(t, closeFn())
	assert.NoError(t, l.Allow(context.Background(), "x"))
}
