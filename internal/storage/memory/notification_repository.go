package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

type notificationRepositoryInMemory struct {
	mu      sync.RWMutex
	byUser  map[string][]domain.Notification
	sources map[string]struct{} // userID/sourceID
}

// NewNotificationRepository создаёт in-memory хранилище уведомлений.
func NewNotificationRepository() domain.NotificationRepository {
	return &notificationRepositoryInMemory{
		byUser:  make(map[string][]domain.Notification),
		sources: make(map[string]struct{}),
	}
}

func (r *notificationRepositoryInMemory) CreateMany(items []domain.Notification) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, n := range items {
		if n.SourceID != "" {
			key := n.UserID + "/" + n.SourceID
			if _, dup := r.sources[key]; dup {
				continue
			}
			r.sources[key] = struct{}{}
		}
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		r.byUser[n.UserID] = append(r.byUser[n.UserID], n)
		created++
	}
	return created, nil
}

// List возвращает уведомления от новых к старым.
func (r *notificationRepositoryInMemory) List(userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Notification, 0)
	for _, n := range r.byUser[userID] {
		if unreadOnly && n.Read() {
			continue
		}
		result = append(result, n)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *notificationRepositoryInMemory) MarkRead(userID string, ids []string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	updated := 0
	items := r.byUser[userID]
	for i := range items {
		if items[i].Read() {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[items[i].ID]; !ok {
				continue
			}
		}
		items[i].ReadAt = at
		updated++
	}
	return updated, nil
}

func (r *notificationRepositoryInMemory) CountUnread(userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, item := range r.byUser[userID] {
		if !item.Read() {
			n++
		}
	}
	return n, nil
}

var _ domain.NotificationRepository = (*notificationRepositoryInMemory)(nil)
