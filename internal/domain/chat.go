package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// ChatKind различает личные и групповые чаты.
type ChatKind string

const (
	// ChatKindDirect: личная переписка двух пользователей.
	ChatKindDirect ChatKind = "direct"
	// ChatKindGroup включает и чаты мероприятий.
	ChatKindGroup ChatKind = "group"
)

// MaxMessageRunes ограничивает длину сообщения в символах.
const MaxMessageRunes = 4000

// Chat объединяет участников переписки.
type Chat struct {
	ID           string
	Kind         ChatKind
	Title        string
	EventID      string
	Participants []string
	CreatedBy    string
	CreatedAt    time.Time
	// Следующее сообщение получит LastSeq+1.
	LastSeq       int64
	LastMessageAt time.Time
}

// Validate проверяет состав участников.
func (c *Chat) Validate() []error {
	var errs []error

	unique := make(map[string]struct{}, len(c.Participants))
	for _, p := range c.Participants {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, ErrChatParticipants)
			break
		}
		unique[p] = struct{}{}
	}
	if len(unique) != len(c.Participants) {
		errs = append(errs, ErrChatParticipants)
	}

	switch c.Kind {
	case ChatKindDirect:
		if len(c.Participants) != 2 || c.EventID != "" {
			errs = append(errs, ErrChatParticipants)
		}
	case ChatKindGroup:
		if len(c.Participants) < 2 && c.EventID == "" {
			errs = append(errs, ErrChatParticipants)
		}
	default:
		errs = append(errs, ErrChatParticipants)
	}
	if c.CreatedBy != "" && !c.HasParticipant(c.CreatedBy) {
		errs = append(errs, ErrNotChatParticipant)
	}

	return errs
}

// HasParticipant проверяет, что пользователь состоит в чате.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// DirectChatKey возвращает ключ личного чата, не зависящий от порядка участников.
func DirectChatKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + ":" + pair[1]
}

// NormalizeParticipants убирает дубликаты и пустые значения, сохраняя порядок.
func NormalizeParticipants(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// Message хранит сообщение чата. Seq строго возрастает внутри чата.
type Message struct {
	ID        string
	ChatID    string
	Seq       int64
	SenderID  string
	Body      string
	CreatedAt time.Time
}

// NormalizeMessageBody обрезает пробелы и проверяет длину тела сообщения.
func NormalizeMessageBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrMessageBodyRequired
	}
	if utf8.RuneCountInString(body) > MaxMessageRunes {
		return "", ErrMessageBodyTooLong
	}
	return body, nil
}
