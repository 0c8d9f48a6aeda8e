package chat

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// DefaultSubscriberBuffer задаёт размер буфера одного live-подписчика.
const DefaultSubscriberBuffer = 32

// recentPerChat ограничивает число ID, по которым hub отсекает повторную доставку.
const recentPerChat = 256

// Subscription доставляет новые сообщения чата одному клиенту.
// Канал C закрывается при Close или если клиент не успевает читать.
type Subscription struct {
	C      <-chan domain.Message
	ch     chan domain.Message
	chatID string
	hub    *Hub
	once   sync.Once
}

// Close отписывает клиента.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub раздаёт сообщения live-подписчикам внутри процесса.
// Одно сообщение может прийти дважды: напрямую от сервиса чатов и из fan-out.
// Повтор с тем же ID подписчикам не отправляется.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	recent map[string]*recentIDs
	buffer int
	logger *log.Entry
}

// recentIDs хранит кольцо последних доставленных ID сообщений одного чата.
type recentIDs struct {
	ring []string
	next int
	set  map[string]struct{}
}

// add запоминает id и сообщает, что он встретился впервые.
func (r *recentIDs) add(id string) bool {
	if _, ok := r.set[id]; ok {
		return false
	}
	if len(r.ring) < recentPerChat {
		r.ring = append(r.ring, id)
	} else {
		delete(r.set, r.ring[r.next])
		r.ring[r.next] = id
		r.next = (r.next + 1) % recentPerChat
	}
	r.set[id] = struct{}{}
	return true
}

// NewHub создаёт hub. buffer <= 0 заменяется DefaultSubscriberBuffer.
func NewHub(buffer int, logger *log.Entry) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = log.WithField("component", "chat-hub")
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		recent: make(map[string]*recentIDs),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe подписывает клиента на чат.
func (h *Hub) Subscribe(chatID string) *Subscription {
	ch := make(chan domain.Message, h.buffer)
	sub := &Subscription{C: ch, ch: ch, chatID: chatID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[chatID] == nil {
		h.subs[chatID] = make(map[*Subscription]struct{})
	}
	h.subs[chatID][sub] = struct{}{}
	return sub
}

// Publish отправляет сообщение всем подписчикам чата без блокировки.
// Подписчик с заполненным буфером отключается.
func (h *Hub) Publish(msg domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs[msg.ChatID]) == 0 {
		return
	}
	if msg.ID != "" {
		recent := h.recent[msg.ChatID]
		if recent == nil {
			recent = &recentIDs{set: make(map[string]struct{})}
			h.recent[msg.ChatID] = recent
		}
		if !recent.add(msg.ID) {
			return
		}
	}

	for sub := range h.subs[msg.ChatID] {
		select {
		case sub.ch <- msg:
		default:
			h.logger.WithField("chat_id", msg.ChatID).Warn("dropping slow chat subscriber")
			h.removeLocked(sub)
		}
	}
}

// Subscribers возвращает число подписчиков чата.
func (h *Hub) Subscribers(chatID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[chatID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	sub.once.Do(func() {
		close(sub.ch)
		subs := h.subs[sub.chatID]
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.chatID)
			delete(h.recent, sub.chatID)
		}
	})
}
