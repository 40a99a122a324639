package cache_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/averonhq/deskchat/internal/cache"
	"github.com/averonhq/deskchat/internal/wire"
)

func openStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "deskchat.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestThreadsRoundTripOrderedByActivity(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveThreads([]wire.Thread{
		{ID: "t-1", Name: "Quiet", Type: wire.ThreadDirect, LastMessageAt: base},
		{ID: "t-2", Name: "Busy", Type: wire.ThreadGroup, LastMessageAt: base.Add(time.Hour),
			UnreadCount:  3,
			Participants: []wire.Participant{{EmployeeCode: "E2", FullName: "Ben Okafor"}}},
	}))

	threads, err := store.Threads()
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.Equal(t, "t-2", threads[0].ID)
	require.Equal(t, wire.ThreadGroup, threads[0].Type)
	require.Equal(t, 3, threads[0].UnreadCount)
	require.Len(t, threads[0].Participants, 1)
	require.Equal(t, "Ben Okafor", threads[0].Participants[0].FullName)
}

func TestSaveThreadsUpsertsByID(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.SaveThreads([]wire.Thread{{ID: "t-1", Name: "Old"}}))
	require.NoError(t, store.SaveThreads([]wire.Thread{{ID: "t-1", Name: "New", UnreadCount: 1}}))

	threads, err := store.Threads()
	require.NoError(t, err)
	require.Len(t, threads, 1)
	require.Equal(t, "New", threads[0].Name)
	require.Equal(t, 1, threads[0].UnreadCount)
}

func TestMessagesRoundTripChronological(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveMessages("t-1", []*wire.Message{
		{ID: "m-2", ThreadID: "t-1", SenderID: "E2", Body: "second", CreatedAt: base.Add(time.Minute)},
		{ID: "m-1", ThreadID: "t-1", SenderID: "E1", Body: "first", CreatedAt: base,
			Attachments: []wire.Attachment{{ID: "a-1", Filename: "doc.pdf", SizeBytes: 42}}},
	}))

	messages, err := store.Messages("t-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "first", messages[0].Body)
	require.Equal(t, "second", messages[1].Body)
	require.Equal(t, wire.StatusDelivered, messages[0].Status)
	require.Len(t, messages[0].Attachments, 1)
	require.Equal(t, "doc.pdf", messages[0].Attachments[0].Filename)
}

func TestMessagesLimitKeepsMostRecent(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var batch []*wire.Message
	for i := 0; i < 5; i++ {
		batch = append(batch, &wire.Message{
			ID:        "m-" + string(rune('a'+i)),
			ThreadID:  "t-1",
			SenderID:  "E2",
			Body:      "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, store.SaveMessages("t-1", batch))

	messages, err := store.Messages("t-1", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "m-d", messages[0].ID)
	require.Equal(t, "m-e", messages[1].ID)
}

func TestSaveMessagesSkipsLocalDraftsAndConverges(t *testing.T) {
	store := openStore(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	confirmed := &wire.Message{ID: "m-1", ThreadID: "t-1", SenderID: "E1", Body: "hello", CreatedAt: at}
	draft := &wire.Message{ID: wire.LocalDraftPrefix + "abc", ThreadID: "t-1", SenderID: "E1", Body: "pending", CreatedAt: at}

	require.NoError(t, store.SaveMessages("t-1", []*wire.Message{confirmed, draft}))
	require.NoError(t, store.SaveMessages("t-1", []*wire.Message{confirmed}))

	messages, err := store.Messages("t-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "m-1", messages[0].ID)
}

func TestMessagesIsolatedPerThread(t *testing.T) {
	store := openStore(t)
	at := time.Now().UTC()

	require.NoError(t, store.SaveMessages("t-1", []*wire.Message{{ID: "m-1", ThreadID: "t-1", SenderID: "E1", Body: "a", CreatedAt: at}}))
	require.NoError(t, store.SaveMessages("t-2", []*wire.Message{{ID: "m-2", ThreadID: "t-2", SenderID: "E1", Body: "b", CreatedAt: at}}))

	messages, err := store.Messages("t-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "m-1", messages[0].ID)
}

func TestPruneDropsOldMessages(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveMessages("t-1", []*wire.Message{
		{ID: "m-old", ThreadID: "t-1", SenderID: "E1", Body: "old", CreatedAt: base.AddDate(0, -2, 0)},
		{ID: "m-new", ThreadID: "t-1", SenderID: "E1", Body: "new", CreatedAt: base},
	}))

	require.NoError(t, store.Prune(base.AddDate(0, -1, 0)))

	messages, err := store.Messages("t-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "m-new", messages[0].ID)
}

func TestEmptyCacheReturnsNil(t *testing.T) {
	store := openStore(t)

	threads, err := store.Threads()
	require.NoError(t, err)
	require.Nil(t, threads)

	messages, err := store.Messages("t-1", 0)
	require.NoError(t, err)
	require.Nil(t, messages)
}
