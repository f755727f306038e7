package authstate_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmerce/authflow/authstate"
	"github.com/openmerce/authflow/envelope"
	apperrors "github.com/openmerce/authflow/internal/errors"
)

func TestStoreIngestShiftsSnapshots(t *testing.T) {
	store := authstate.NewStore()

	first, err := store.Ingest(unauthenticated(pending(envelope.FlowLogin)))
	require.NoError(t, err)
	require.Equal(t, authstate.EventNone, first.Event)
	require.Equal(t, uint64(1), first.Seq)
	require.False(t, store.IsAuthenticated())

	second, err := store.Ingest(authenticated("1", passwordAt1))
	require.NoError(t, err)
	require.Equal(t, authstate.EventLoggedIn, second.Event)
	require.Equal(t, uint64(2), second.Seq)
	require.True(t, store.IsAuthenticated())
	require.Equal(t, second.Event, store.LastEvent())

	user := store.BoundUser()
	require.NotNil(t, user)
	require.Equal(t, "1", user.ID.String())
}

func TestStoreRejectsMalformedEnvelopes(t *testing.T) {
	store := authstate.NewStore()

	_, err := store.Ingest(nil)
	require.ErrorIs(t, err, apperrors.ErrMalformedEnvelope)

	_, err = store.Ingest(&envelope.Envelope{Status: 503})
	require.ErrorIs(t, err, apperrors.ErrUnknownStatus)

	// A rejected envelope must not disturb the snapshots.
	require.False(t, store.IsAuthenticated())
	require.Nil(t, store.Current())
}

func TestStoreProjections(t *testing.T) {
	store := authstate.NewStore()
	require.False(t, store.RequiresReauthentication())
	require.Nil(t, store.BoundUser())
	_, ok := store.PendingFlow()
	require.False(t, ok)

	_, err := store.Ingest(unauthenticated(pending(envelope.FlowMFAReauthenticate, envelope.AuthenticatorTOTP)))
	require.NoError(t, err)

	require.True(t, store.RequiresReauthentication())
	flow, ok := store.PendingFlow()
	require.True(t, ok)
	require.Equal(t, envelope.FlowMFAReauthenticate, flow.ID)
	require.Nil(t, store.BoundUser())
}

func TestStoreResetClearsState(t *testing.T) {
	store := authstate.NewStore()

	env := authenticated("1", passwordAt1)
	_, err := store.Ingest(env)
	require.NoError(t, err)
	require.True(t, store.IsAuthenticated())

	store.Reset()
	require.False(t, store.IsAuthenticated())
	require.Nil(t, store.Current())
	require.Equal(t, authstate.EventNone, store.LastEvent())

	// After a reset the next ingest is a first observation again: the same
	// authenticated envelope classifies as a login, not a no-op refresh.
	change, err := store.Ingest(env)
	require.NoError(t, err)
	require.Equal(t, authstate.EventLoggedIn, change.Event)
}

func TestStoreNotifiesSubscribersPerIngest(t *testing.T) {
	store := authstate.NewStore()

	var changes []authstate.Change
	store.Subscribe(func(c authstate.Change) {
		changes = append(changes, c)
	})

	_, err := store.Ingest(unauthenticated(pending(envelope.FlowLogin)))
	require.NoError(t, err)
	_, err = store.Ingest(authenticated("1", passwordAt1))
	require.NoError(t, err)

	require.Len(t, changes, 2)
	require.Equal(t, authstate.EventNone, changes[0].Event)
	require.Equal(t, authstate.EventLoggedIn, changes[1].Event)
	require.Less(t, changes[0].Seq, changes[1].Seq)
}

func TestStoreSubscriberCanReadProjections(t *testing.T) {
	store := authstate.NewStore()

	var sawAuthenticated bool
	store.Subscribe(func(c authstate.Change) {
		sawAuthenticated = store.IsAuthenticated()
	})

	_, err := store.Ingest(authenticated("1", passwordAt1))
	require.NoError(t, err)
	require.True(t, sawAuthenticated)
}

func TestStoreConcurrentIngest(t *testing.T) {
	store := authstate.NewStore()

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	store.Subscribe(func(c authstate.Change) {
		mu.Lock()
		defer mu.Unlock()
		seen[c.Seq] = true
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = store.Ingest(authenticated("1", passwordAt1))
			} else {
				_, err = store.Ingest(unauthenticated(pending(envelope.FlowLogin)))
			}
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Every ingest got its own sequence number and notification.
	require.Len(t, seen, 20)
	require.True(t, store.Current() != nil)
}
