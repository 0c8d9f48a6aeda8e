package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const chatColumns = `c.id, c.kind, c.title, c.event_id, c.created_by, c.created_at, c.last_seq, c.last_message_at`

type chatRepository struct {
	db *sql.DB
}

// NewChatRepository создаёт PostgreSQL-реализацию ChatRepository.
func NewChatRepository(store *Store) domain.ChatRepository {
	return &chatRepository{db: store.DB()}
}

func (r *chatRepository) Create(chat domain.Chat) error {
	ctx, cancel := opContext()
	defer cancel()

	directKey := ""
	if chat.Kind == domain.ChatKindDirect && len(chat.Participants) == 2 {
		directKey = domain.DirectChatKey(chat.Participants[0], chat.Participants[1])
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chats (id, kind, title, event_id, direct_key, created_by, last_seq, last_message_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			chat.ID, string(chat.Kind), chat.Title, chat.EventID, directKey, chat.CreatedBy,
			chat.LastSeq, nullableTime(chat.LastMessageAt), chat.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("insert chat: %w", err)
		}

		for i, userID := range chat.Participants {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chat_participants (chat_id, user_id, position) VALUES ($1,$2,$3)
			`, chat.ID, userID, i); err != nil {
				return fmt.Errorf("insert chat participant: %w", err)
			}
		}
		return nil
	})
}

func (r *chatRepository) Get(id string) (domain.Chat, error) {
	return r.findOne(`c.id = $1`, id)
}

func (r *chatRepository) FindDirect(a, b string) (domain.Chat, error) {
	return r.findOne(`c.direct_key = $1`, domain.DirectChatKey(a, b))
}

func (r *chatRepository) FindByEvent(eventID string) (domain.Chat, error) {
	if eventID == "" {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	return r.findOne(`c.event_id = $1`, eventID)
}

func (r *chatRepository) AddParticipant(chatID, userID string) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_participants (chat_id, user_id, position)
		SELECT c.id, $2, COALESCE((SELECT MAX(position) + 1 FROM chat_participants WHERE chat_id = c.id), 0)
		FROM chats c
		WHERE c.id = $1
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("add chat participant: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}

	if _, err := r.Get(chatID); err != nil {
		return err
	}
	return nil
}

// ListByUser возвращает чаты пользователя, самые активные первыми.
func (r *chatRepository) ListByUser(userID string, limit int) ([]domain.Chat, error) {
	ctx, cancel := opContext()
	defer cancel()

	query := `
		SELECT ` + chatColumns + `
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		WHERE p.user_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id ASC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user chats: %w", err)
	}
	defer rows.Close()

	chats := make([]domain.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	for i := range chats {
		participants, err := r.participants(ctx, chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].Participants = participants
	}
	return chats, nil
}

// AppendMessage берёт следующий номер через UPDATE ... RETURNING: строка чата
// блокируется до конца транзакции, поэтому Seq идут без пропусков.
func (r *chatRepository) AppendMessage(msg domain.Message) (domain.Message, error) {
	ctx, cancel := opContext()
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE chats
			SET last_seq = last_seq + 1,
			    last_message_at = $2
			WHERE id = $1
			RETURNING last_seq
		`, msg.ChatID, msg.CreatedAt).Scan(&msg.Seq)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrChatNotFound
			}
			return fmt.Errorf("advance chat sequence: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (chat_id, seq, id, sender_id, body, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, msg.ChatID, msg.Seq, msg.ID, msg.SenderID, msg.Body, msg.CreatedAt); err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (r *chatRepository) ListMessages(chatID string, afterSeq int64, limit int) ([]domain.Message, error) {
	if _, err := r.Get(chatID); err != nil {
		return nil, err
	}

	ctx, cancel := opContext()
	defer cancel()

	query := `
		SELECT id, chat_id, seq, sender_id, body, created_at
		FROM chat_messages
		WHERE chat_id = $1 AND seq > $2
		ORDER BY seq ASC`
	args := []any{chatID, afterSeq}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Seq, &msg.SenderID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return messages, nil
}

func (r *chatRepository) findOne(where string, arg any) (domain.Chat, error) {
	ctx, cancel := opContext()
	defer cancel()

	chat, err := scanChat(r.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats c WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Chat{}, domain.ErrChatNotFound
		}
		return domain.Chat{}, fmt.Errorf("select chat: %w", err)
	}

	chat.Participants, err = r.participants(ctx, chat.ID)
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (r *chatRepository) participants(ctx context.Context, chatID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM chat_participants WHERE chat_id = $1 ORDER BY position ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat participants: %w", err)
	}
	defer rows.Close()

	participants := make([]string, 0, 2)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan chat participant: %w", err)
		}
		participants = append(participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat participants: %w", err)
	}
	return participants, nil
}

func scanChat(row rowScanner) (domain.Chat, error) {
	var (
		chat        domain.Chat
		kind        string
		lastMessage sql.NullTime
	)
	if err := row.Scan(&chat.ID, &kind, &chat.Title, &chat.EventID, &chat.CreatedBy, &chat.CreatedAt, &chat.LastSeq, &lastMessage); err != nil {
		return domain.Chat{}, err
	}
	chat.Kind = domain.ChatKind(kind)
	chat.LastMessageAt = timeFromNull(lastMessage)
	return chat, nil
}

var _ domain.ChatRepository = (*chatRepository)(nil)
