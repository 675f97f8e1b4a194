package repositories

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"chat-relay/domain"
)

type IMessageRepository interface {
	PersistMessage(m domain.Message) (uint64, error)
	GetConversation(userA, userB string) ([]domain.Message, error)
	GetRecentForUser(userID string, limit int) ([]domain.Message, error)
}

// seqBandwidth is the identifier lease size. A larger lease means fewer disk
// round trips per assignment at the cost of gaps after a restart; gaps are
// fine, only monotonicity matters.
const seqBandwidth = 128

// MessageRepository is the durable record of every message, backed by
// BadgerDB. Identifiers come from a badger sequence and are monotonically
// increasing. Each record is written under a conversation key and under one
// user key per participant so that both query shapes are plain prefix scans.
type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:message"), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("opening message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

// Close releases the unused part of the identifier lease back to the store.
func (r *MessageRepository) Close() error {
	return r.seq.Release()
}

// storedMessage is the on-disk shape of a record.
type storedMessage struct {
	ID         uint64 `cbor:"id"`
	SenderID   string `cbor:"sender_id"`
	ReceiverID string `cbor:"receiver_id"`
	Content    string `cbor:"content"`
	Kind       string `cbor:"kind"`
	At         int64  `cbor:"at"` // unix nanoseconds, UTC
}

// keySegment makes an identity safe to embed between key separators.
// Identities are opaque strings: one containing ':' or '|' must not be able
// to alias another identity's key prefix.
func keySegment(id string) string {
	return url.QueryEscape(id)
}

// conversationKey orders one pair's messages chronologically regardless of
// direction. The 19-digit nanosecond padding makes lexicographic order match
// time order; the padded identifier disambiguates two messages stored in the
// same nanosecond.
func conversationKey(pair string, at time.Time, id uint64) []byte {
	return fmt.Appendf(nil, "conv:%s:%019d:%020d", pair, at.UnixNano(), id)
}

func userKey(userID string, at time.Time, id uint64) []byte {
	return fmt.Appendf(nil, "user:%s:%019d:%020d", keySegment(userID), at.UnixNano(), id)
}

// pairKey names a conversation independently of who sent first.
func pairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return keySegment(userA) + "|" + keySegment(userB)
}

// PersistMessage assigns the next identifier and writes all key projections
// of the record in a single transaction. A message is persisted exactly once,
// before any delivery attempt is made with it.
func (r *MessageRepository) PersistMessage(m domain.Message) (uint64, error) {
	next, err := r.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("assigning message identifier: %w", err)
	}
	// Identifiers start at 1 so the zero value can mean "not persisted".
	id := next + 1
	m.ID = id

	value, err := cbor.Marshal(fromMessage(m))
	if err != nil {
		return 0, fmt.Errorf("encoding message %d: %w", id, err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(conversationKey(pairKey(m.SenderID, m.ReceiverID), m.Timestamp, id), value); err != nil {
			return err
		}
		if err := txn.Set(userKey(m.SenderID, m.Timestamp, id), value); err != nil {
			return err
		}
		if m.ReceiverID != m.SenderID {
			return txn.Set(userKey(m.ReceiverID, m.Timestamp, id), value)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("writing message %d: %w", id, err)
	}
	return id, nil
}

// GetConversation returns every message exchanged between the two identities,
// ascending by timestamp. Key construction does the ordering; this is a plain
// forward prefix scan.
func (r *MessageRepository) GetConversation(userA, userB string) ([]domain.Message, error) {
	prefix := fmt.Appendf(nil, "conv:%s:", pairKey(userA, userB))

	var raw [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(raw)
}

// GetRecentForUser returns the user's newest messages first, at most limit of
// them, scanning the user index backwards from the newest possible key.
func (r *MessageRepository) GetRecentForUser(userID string, limit int) ([]domain.Message, error) {
	prefix := fmt.Appendf(nil, "user:%s:", keySegment(userID))

	var raw [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest key for this user, then walk backwards.
		seekKey := append(append([]byte(nil), prefix...), 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(raw) == limit {
				r.log.Debug(fmt.Sprintf("Recent-message limit of %d reached", limit),
					"user_id", userID)
				break
			}
			if err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(raw)
}

func decodeAll(raw [][]byte) ([]domain.Message, error) {
	var messages []domain.Message
	for _, value := range raw {
		var stored storedMessage
		if err := cbor.Unmarshal(value, &stored); err != nil {
			return nil, fmt.Errorf("decoding stored message: %w", err)
		}
		messages = append(messages, toMessage(stored))
	}
	return messages, nil
}

func fromMessage(m domain.Message) storedMessage {
	return storedMessage{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Kind:       string(m.Kind),
		At:         m.Timestamp.UnixNano(),
	}
}

func toMessage(stored storedMessage) domain.Message {
	return domain.Message{
		ID:         stored.ID,
		SenderID:   stored.SenderID,
		ReceiverID: stored.ReceiverID,
		Content:    stored.Content,
		Kind:       domain.Kind(stored.Kind),
		Timestamp:  time.Unix(0, stored.At).UTC(),
	}
}
