package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func newTestRepository(t *testing.T) *MessageRepository {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	repository, err := NewMessageRepository(db, slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func Test_Persist_Assigns_Monotonic_Identifiers(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC()

	var previous uint64
	for i := 0; i < 5; i++ {
		id, err := repository.PersistMessage(domain.Message{
			SenderID:   "u1",
			ReceiverID: "u2",
			Content:    "hello",
			Kind:       domain.KindChat,
			Timestamp:  at.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
		req.Greater(id, previous)
		previous = id
	}
}

func Test_Conversation_Roundtrip_Ascending(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC().Truncate(time.Millisecond)

	// Given messages in both directions, persisted out of time order
	messages := []domain.Message{
		{SenderID: "u2", ReceiverID: "u1", Content: "and back", Kind: domain.KindChat, Timestamp: at.Add(2 * time.Minute)},
		{SenderID: "u1", ReceiverID: "u2", Content: "first", Kind: domain.KindChat, Timestamp: at},
		{SenderID: "u1", ReceiverID: "u2", Content: "second", Kind: domain.KindChat, Timestamp: at.Add(1 * time.Minute)},
	}
	for _, m := range messages {
		_, err := repository.PersistMessage(m)
		req.NoError(err)
	}

	// When querying the conversation from either side
	fetched, err := repository.GetConversation("u1", "u2")
	req.NoError(err)

	// Then all messages come back, ascending by timestamp, contents intact
	req.Len(fetched, 3)
	req.Equal("first", fetched[0].Content)
	req.Equal("second", fetched[1].Content)
	req.Equal("and back", fetched[2].Content)
	req.Equal("u1", fetched[0].SenderID)
	req.Equal("u2", fetched[0].ReceiverID)
	req.Equal(domain.KindChat, fetched[0].Kind)
	req.Equal(at, fetched[0].Timestamp)
	req.NotZero(fetched[0].ID)

	// And the pair key is direction-independent
	mirrored, err := repository.GetConversation("u2", "u1")
	req.NoError(err)
	req.Equal(fetched, mirrored)
}

func Test_Conversation_Excludes_Other_Pairs(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC()

	_, err := repository.PersistMessage(domain.Message{
		SenderID: "u1", ReceiverID: "u2", Content: "ours", Kind: domain.KindChat, Timestamp: at,
	})
	req.NoError(err)
	_, err = repository.PersistMessage(domain.Message{
		SenderID: "u1", ReceiverID: "u3", Content: "theirs", Kind: domain.KindChat, Timestamp: at,
	})
	req.NoError(err)

	fetched, err := repository.GetConversation("u1", "u2")
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("ours", fetched[0].Content)
}

func Test_Recent_Returns_Newest_First_With_Limit(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC()

	// Given 60 persisted messages involving u1
	for i := 0; i < 60; i++ {
		sender, receiver := "u1", fmt.Sprintf("peer-%d", i%7)
		if i%2 == 1 {
			sender, receiver = receiver, sender
		}
		_, err := repository.PersistMessage(domain.Message{
			SenderID:   sender,
			ReceiverID: receiver,
			Content:    fmt.Sprintf("message %d", i),
			Kind:       domain.KindChat,
			Timestamp:  at.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
	}

	// When querying recent activity with the default limit
	fetched, err := repository.GetRecentForUser("u1", 50)
	req.NoError(err)

	// Then exactly 50 come back, newest first
	req.Len(fetched, 50)
	req.Equal("message 59", fetched[0].Content)
	req.Equal("message 10", fetched[49].Content)
	for i := 1; i < len(fetched); i++ {
		req.False(fetched[i].Timestamp.After(fetched[i-1].Timestamp))
	}
}

func Test_Recent_Covers_Both_Directions(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC()

	_, err := repository.PersistMessage(domain.Message{
		SenderID: "u1", ReceiverID: "u2", Content: "sent", Kind: domain.KindChat, Timestamp: at,
	})
	req.NoError(err)
	_, err = repository.PersistMessage(domain.Message{
		SenderID: "u3", ReceiverID: "u1", Content: "received", Kind: domain.KindChat, Timestamp: at.Add(time.Second),
	})
	req.NoError(err)

	fetched, err := repository.GetRecentForUser("u1", 50)
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("received", fetched[0].Content)
	req.Equal("sent", fetched[1].Content)
}

func Test_Recent_Is_Isolated_From_Separator_Identities(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC()

	// Given a message belonging to an identity that embeds the key separator
	_, err := repository.PersistMessage(domain.Message{
		SenderID: "u1:evil", ReceiverID: "other", Content: "private", Kind: domain.KindChat, Timestamp: at,
	})
	req.NoError(err)

	// Then u1's recent activity must not leak it
	fetched, err := repository.GetRecentForUser("u1", 50)
	req.NoError(err)
	req.Empty(fetched)

	// And the owning identity still sees its own message
	owned, err := repository.GetRecentForUser("u1:evil", 50)
	req.NoError(err)
	req.Len(owned, 1)
	req.Equal("private", owned[0].Content)
}

func Test_Conversation_Is_Isolated_From_Separator_Identities(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC()

	// Given a conversation where one identity embeds the pair separator
	_, err := repository.PersistMessage(domain.Message{
		SenderID: "a", ReceiverID: "b|c", Content: "private", Kind: domain.KindChat, Timestamp: at,
	})
	req.NoError(err)

	// Then a crafted pair naming the same raw bytes resolves to nothing
	fetched, err := repository.GetConversation("a|b", "c")
	req.NoError(err)
	req.Empty(fetched)

	// And the real pair still resolves, from either side
	owned, err := repository.GetConversation("a", "b|c")
	req.NoError(err)
	req.Len(owned, 1)
	req.Equal("private", owned[0].Content)
}

func Test_Recent_For_Unknown_User_Is_Empty(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)

	fetched, err := repository.GetRecentForUser("nobody", 50)
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Join_Record_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	at := time.Now().UTC().Truncate(time.Millisecond)

	id, err := repository.PersistMessage(domain.Message{
		SenderID:   "u1",
		ReceiverID: "admin_system",
		Content:    "u1 has joined the chat.",
		Kind:       domain.KindJoin,
		Timestamp:  at,
	})
	req.NoError(err)

	fetched, err := repository.GetConversation("u1", "admin_system")
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal(id, fetched[0].ID)
	req.Equal(domain.KindJoin, fetched[0].Kind)
}
