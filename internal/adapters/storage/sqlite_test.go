package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dcastano/btcpayd/internal/adapters/storage"
	"github.com/dcastano/btcpayd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(matchID string, typ domain.EventType) domain.PaymentEvent {
	req := domain.PaymentRequirement{
		OrderMatchID:    matchID,
		MyAddress:       "1MyAddr",
		PaymentQuantity: 1_00000000,
	}
	return domain.NewPaymentEvent(req, typ, "")
}

func matchID(tag string) string {
	return tag + strings.Repeat("0", 128-len(tag))
}

func TestSQLiteStorage_SaveAndHistory(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveEvent(ctx, makeEvent(matchID("aa"), domain.EventObserved)))
	require.NoError(t, db.SaveEvent(ctx, makeEvent(matchID("aa"), domain.EventPromoted)))
	require.NoError(t, db.SaveEvent(ctx, makeEvent(matchID("bb"), domain.EventObserved)))

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	events, err := db.History(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestSQLiteStorage_MatchHistory_InOrder(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	id := matchID("aa")

	ev1 := makeEvent(id, domain.EventObserved)
	ev2 := makeEvent(id, domain.EventPromoted)
	ev2.At = ev1.At.Add(time.Second)
	ev3 := makeEvent(id, domain.EventBroadcast)
	ev3.At = ev1.At.Add(2 * time.Second)

	require.NoError(t, db.SaveEvent(ctx, ev1))
	require.NoError(t, db.SaveEvent(ctx, ev3))
	require.NoError(t, db.SaveEvent(ctx, ev2))

	// otro match no debe aparecer
	require.NoError(t, db.SaveEvent(ctx, makeEvent(matchID("bb"), domain.EventObserved)))

	events, err := db.MatchHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventObserved, events[0].Type)
	assert.Equal(t, domain.EventPromoted, events[1].Type)
	assert.Equal(t, domain.EventBroadcast, events[2].Type)
}

func TestSQLiteStorage_History_EmptyRange(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	events, err := db.History(context.Background(),
		time.Now().Add(-2*time.Hour),
		time.Now().Add(-time.Hour),
	)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSQLiteStorage_DuplicateEventID(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	ev := makeEvent(matchID("aa"), domain.EventObserved)
	require.NoError(t, db.SaveEvent(ctx, ev))
	assert.Error(t, db.SaveEvent(ctx, ev)) // PK violation
}
