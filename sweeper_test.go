package authbridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperSweep(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPendingRedirectsRepository(db)
	session := seedSession(t, db)
	ctx := context.Background()

	_, err := repo.Create(ctx, session.ID, "https://a.test/expired", nil, nil, time.Nanosecond)
	require.NoError(t, err)

	alive, err := repo.Create(ctx, session.ID, "https://a.test/alive", nil, nil, time.Minute)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	sweeper := NewSweeper(repo, NewEventRecorder(nil, nil), nil)

	deleted, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	latest, err := repo.Latest(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, alive.ID, latest.ID)
}

func TestSweeperStartStopsOnCancel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPendingRedirectsRepository(db)
	session := seedSession(t, db)

	_, err := repo.Create(context.Background(), session.ID, "https://a.test/expired", nil, nil, time.Nanosecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := NewSweeper(repo, NewEventRecorder(nil, nil), nil)
	sweeper.Start(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := repo.Latest(context.Background(), session.ID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "the loop should sweep the expired row")

	cancel()
}
