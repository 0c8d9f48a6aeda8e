package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

type chatRepositoryInMemory struct {
	mu       sync.RWMutex
	chats    map[string]domain.Chat
	direct   map[string]string // DirectChatKey -> chatID
	byEvent  map[string]string // eventID -> chatID
	messages map[string][]domain.Message
}

// NewChatRepository создаёт in-memory хранилище чатов.
func NewChatRepository() domain.ChatRepository {
	return &chatRepositoryInMemory{
		chats:    make(map[string]domain.Chat),
		direct:   make(map[string]string),
		byEvent:  make(map[string]string),
		messages: make(map[string][]domain.Message),
	}
}

func (r *chatRepositoryInMemory) Create(chat domain.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[chat.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if chat.Kind == domain.ChatKindDirect {
		key := domain.DirectChatKey(chat.Participants[0], chat.Participants[1])
		if _, ok := r.direct[key]; ok {
			return domain.ErrAlreadyExists
		}
		r.direct[key] = chat.ID
	}
	if chat.EventID != "" {
		if _, ok := r.byEvent[chat.EventID]; ok {
			return domain.ErrAlreadyExists
		}
		r.byEvent[chat.EventID] = chat.ID
	}
	r.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (r *chatRepositoryInMemory) Get(id string) (domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, ok := r.chats[id]
	if !ok {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	return cloneChat(chat), nil
}

func (r *chatRepositoryInMemory) FindDirect(a, b string) (domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.direct[domain.DirectChatKey(a, b)]
	if !ok {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	return cloneChat(r.chats[id]), nil
}

func (r *chatRepositoryInMemory) FindByEvent(eventID string) (domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEvent[eventID]
	if !ok {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	return cloneChat(r.chats[id]), nil
}

func (r *chatRepositoryInMemory) AddParticipant(chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return domain.ErrChatNotFound
	}
	if chat.HasParticipant(userID) {
		return nil
	}
	chat.Participants = append(append([]string(nil), chat.Participants...), userID)
	r.chats[chatID] = chat
	return nil
}

// ListByUser возвращает чаты пользователя, самые активные первыми.
func (r *chatRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Chat, 0)
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			result = append(result, cloneChat(chat))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ai, aj := lastActivity(result[i]), lastActivity(result[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// AppendMessage присваивает следующий номер под блокировкой, поэтому Seq без пропусков.
func (r *chatRepositoryInMemory) AppendMessage(msg domain.Message) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[msg.ChatID]
	if !ok {
		return domain.Message{}, domain.ErrChatNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	chat.LastSeq++
	chat.LastMessageAt = msg.CreatedAt
	msg.Seq = chat.LastSeq

	r.chats[chat.ID] = chat
	r.messages[chat.ID] = append(r.messages[chat.ID], msg)
	return msg, nil
}

func (r *chatRepositoryInMemory) ListMessages(chatID string, afterSeq int64, limit int) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.chats[chatID]; !ok {
		return nil, domain.ErrChatNotFound
	}

	journal := r.messages[chatID]
	// Seq начинается с 1 и идёт без пропусков, поэтому индекс = Seq-1.
	start := int(afterSeq)
	if start < 0 {
		start = 0
	}
	if start >= len(journal) {
		return []domain.Message{}, nil
	}
	end := len(journal)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return append([]domain.Message(nil), journal[start:end]...), nil
}

func lastActivity(chat domain.Chat) time.Time {
	if chat.LastMessageAt.IsZero() {
		return chat.CreatedAt
	}
	return chat.LastMessageAt
}

func cloneChat(src domain.Chat) domain.Chat {
	dst := src
	dst.Participants = append([]string(nil), src.Participants...)
	return dst
}

var _ domain.ChatRepository = (*chatRepositoryInMemory)(nil)
