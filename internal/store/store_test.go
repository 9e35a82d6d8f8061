package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testKey() domain.SessionKey {
	return domain.SessionKey{PlatformID: "console", ChatID: "repl", SenderID: "u1"}
}

func newSession(t *testing.T, db *DB) *domain.Session {
	t.Helper()
	sess, err := NewSQLiteSessionStore(db).GetOrCreate(context.Background(), testKey(), "gpt-3.5-turbo", "be nice")
	require.NoError(t, err)
	return sess
}

func TestOpenRunsMigrations(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.SQL().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)

	for _, table := range []string{"sessions", "turns", "senders"} {
		var n int
		err := db.SQL().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestSessionGetOrCreate(t *testing.T) {
	db := testDB(t)
	sessions := NewSQLiteSessionStore(db)
	ctx := context.Background()

	first, err := sessions.GetOrCreate(ctx, testKey(), "gpt-3.5-turbo", "be nice")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "gpt-3.5-turbo", first.Model)
	assert.Equal(t, "be nice", first.Prompt)

	again, err := sessions.GetOrCreate(ctx, testKey(), "gpt-4", "ignored")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "gpt-3.5-turbo", again.Model, "existing session keeps its model")

	other, err := sessions.GetOrCreate(ctx, domain.SessionKey{PlatformID: "irc", ChatID: "#go", SenderID: "u2"}, "gpt-4", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestSessionSaveModel(t *testing.T) {
	db := testDB(t)
	sessions := NewSQLiteSessionStore(db)
	ctx := context.Background()
	sess := newSession(t, db)

	require.NoError(t, sessions.SaveModel(ctx, sess.ID, "gpt-4"))

	reloaded, err := sessions.GetOrCreate(ctx, testKey(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", reloaded.Model)

	assert.ErrorIs(t, sessions.SaveModel(ctx, "missing", "gpt-4"), ErrNotFound)
}

// turnStores runs a subtest against both TurnStore implementations.
func turnStores(t *testing.T, run func(t *testing.T, turns TurnStore, sessionID string)) {
	t.Run("sqlite", func(t *testing.T) {
		db := testDB(t)
		sess := newSession(t, db)
		run(t, NewSQLiteTurnStore(db), sess.ID)
	})
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryTurnStore(), "mem-session")
	})
}

func TestTurnCreateAssignsIDs(t *testing.T) {
	turnStores(t, func(t *testing.T, turns TurnStore, sessionID string) {
		ctx := context.Background()
		a := domain.Turn{SessionID: sessionID, Role: domain.RoleUser, Content: "hello", SenderID: "u1", Tokens: 3}
		b := domain.Turn{SessionID: sessionID, Role: domain.RoleAssistant, Content: "hi there", Tokens: 4}

		require.NoError(t, turns.Create(ctx, &a))
		require.NoError(t, turns.Create(ctx, &b))

		assert.Positive(t, a.ID)
		assert.Greater(t, b.ID, a.ID)
	})
}

func TestTurnFindReturnsRecentOldestFirst(t *testing.T) {
	turnStores(t, func(t *testing.T, turns TurnStore, sessionID string) {
		ctx := context.Background()
		for i := 1; i <= 10; i++ {
			turn := domain.Turn{SessionID: sessionID, Role: domain.RoleUser, Content: fmt.Sprintf("msg %d", i)}
			require.NoError(t, turns.Create(ctx, &turn))
		}

		got, err := turns.Find(ctx, sessionID, 4)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "msg 7", got[0].Content)
		assert.Equal(t, "msg 10", got[3].Content)
	})
}

func TestTurnSaveRewritesContent(t *testing.T) {
	turnStores(t, func(t *testing.T, turns TurnStore, sessionID string) {
		ctx := context.Background()
		turn := domain.Turn{SessionID: sessionID, Role: domain.RoleUser, Content: "a very long body", Tokens: 200}
		require.NoError(t, turns.Create(ctx, &turn))

		turn.Content = "placeholder"
		turn.Tokens = 8
		require.NoError(t, turns.Save(ctx, &turn))

		got, err := turns.Get(ctx, sessionID, turn.ID)
		require.NoError(t, err)
		assert.Equal(t, "placeholder", got.Content)
		assert.Equal(t, 8, got.Tokens)

		missing := domain.Turn{ID: 9999, SessionID: sessionID}
		assert.ErrorIs(t, turns.Save(ctx, &missing), ErrNotFound)
	})
}

func TestTurnGetPreservesToolCall(t *testing.T) {
	turnStores(t, func(t *testing.T, turns TurnStore, sessionID string) {
		ctx := context.Background()
		turn := domain.Turn{
			SessionID: sessionID,
			Role:      domain.RoleAssistant,
			ToolCall:  &domain.ToolCall{Name: "get_current_time", Arguments: "{}"},
		}
		require.NoError(t, turns.Create(ctx, &turn))

		got, err := turns.Get(ctx, sessionID, turn.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ToolCall)
		assert.Equal(t, "get_current_time", got.ToolCall.Name)
		assert.Equal(t, "{}", got.ToolCall.Arguments)

		_, err = turns.Get(ctx, sessionID, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTurnSearchPaginatesNewestFirst(t *testing.T) {
	turnStores(t, func(t *testing.T, turns TurnStore, sessionID string) {
		ctx := context.Background()
		for i := 1; i <= 7; i++ {
			turn := domain.Turn{SessionID: sessionID, Role: domain.RoleUser, Content: fmt.Sprintf("cats fact %d", i)}
			require.NoError(t, turns.Create(ctx, &turn))
		}
		noise := domain.Turn{SessionID: sessionID, Role: domain.RoleUser, Content: "dogs only"}
		require.NoError(t, turns.Create(ctx, &noise))

		page1, total, err := turns.Search(ctx, sessionID, "cats", 5, 0)
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		require.Len(t, page1, 5)
		assert.Equal(t, "cats fact 7", page1[0].Content)

		page2, total, err := turns.Search(ctx, sessionID, "cats", 5, 5)
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		require.Len(t, page2, 2)
		assert.Equal(t, "cats fact 2", page2[0].Content)

		empty, total, err := turns.Search(ctx, sessionID, "birds", 5, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, empty)
	})
}

// senderStores runs a subtest against both SenderStore implementations.
func senderStores(t *testing.T, run func(t *testing.T, senders SenderStore)) {
	t.Run("sqlite", func(t *testing.T) {
		run(t, NewSQLiteSenderStore(testDB(t)))
	})
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemorySenderStore())
	})
}

func TestSenderGetOrCreateUpserts(t *testing.T) {
	senderStores(t, func(t *testing.T, senders SenderStore) {
		ctx := context.Background()

		first, err := senders.GetOrCreate(ctx, "u1", "Sam")
		require.NoError(t, err)
		assert.Equal(t, "Sam", first.Name)
		assert.False(t, first.IsAdmin)

		renamed, err := senders.GetOrCreate(ctx, "u1", "Sammy")
		require.NoError(t, err)
		assert.Equal(t, "Sammy", renamed.Name)

		kept, err := senders.GetOrCreate(ctx, "u1", "")
		require.NoError(t, err)
		assert.Equal(t, "Sammy", kept.Name, "empty name keeps the stored one")
	})
}

func TestSenderInfoAndAdmin(t *testing.T) {
	senderStores(t, func(t *testing.T, senders SenderStore) {
		ctx := context.Background()
		_, err := senders.GetOrCreate(ctx, "u1", "Sam")
		require.NoError(t, err)

		require.NoError(t, senders.SaveInfo(ctx, "u1", "likes tea"))
		require.NoError(t, senders.SetAdmin(ctx, "u1", true))

		got, err := senders.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "likes tea", got.Info)
		assert.True(t, got.IsAdmin)

		assert.ErrorIs(t, senders.SaveInfo(ctx, "ghost", "x"), ErrNotFound)
		assert.ErrorIs(t, senders.SetAdmin(ctx, "ghost", true), ErrNotFound)
		_, err = senders.Get(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
