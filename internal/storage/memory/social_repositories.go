package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// FollowRepository держит социальный граф в памяти.
type FollowRepository struct {
	mu        sync.RWMutex
	followers map[string]map[string]time.Time // followee -> follower -> since
	following map[string]map[string]time.Time // follower -> followee -> since
}

// NewFollowRepository создаёт in-memory реализацию FollowRepository.
func NewFollowRepository() *FollowRepository {
	return &FollowRepository{
		followers: make(map[string]map[string]time.Time),
		following: make(map[string]map[string]time.Time),
	}
}

func (r *FollowRepository) Follow(followerID, followeeID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.following[followerID][followeeID]; ok {
		return false, nil
	}
	addEdge(r.following, followerID, followeeID, at)
	addEdge(r.followers, followeeID, followerID, at)
	return true, nil
}

func (r *FollowRepository) Unfollow(followerID, followeeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.following[followerID][followeeID]; !ok {
		return false, nil
	}
	delete(r.following[followerID], followeeID)
	delete(r.followers[followeeID], followerID)
	return true, nil
}

func (r *FollowRepository) ListFollowers(userID string, limit, offset int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return page(r.followers[userID], limit, offset), nil
}

func (r *FollowRepository) ListFollowing(userID string, limit, offset int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return page(r.following[userID], limit, offset), nil
}

func (r *FollowRepository) Counts(userID string) (domain.FollowCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.FollowCounts{
		Followers: int64(len(r.followers[userID])),
		Following: int64(len(r.following[userID])),
	}, nil
}

func addEdge(graph map[string]map[string]time.Time, from, to string, at time.Time) {
	edges, ok := graph[from]
	if !ok {
		edges = make(map[string]time.Time)
		graph[from] = edges
	}
	edges[to] = at
}

// page возвращает идентификаторы от новых связей к старым.
func page(edges map[string]time.Time, limit, offset int) []string {
	ids := make([]string, 0, len(edges))
	for id := range edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := edges[ids[i]], edges[ids[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ids[i] < ids[j]
	})
	if offset >= len(ids) {
		return []string{}
	}
	ids = ids[offset:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

type reviewRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Review // businessID/authorID -> review
}

// NewReviewRepository создаёт in-memory хранилище отзывов.
func NewReviewRepository() domain.ReviewRepository {
	return &reviewRepositoryInMemory{items: make(map[string]domain.Review)}
}

func (r *reviewRepositoryInMemory) Upsert(review domain.Review) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := review.BusinessID + "/" + review.AuthorID
	if existing, ok := r.items[key]; ok {
		review.ID = existing.ID
		review.CreatedAt = existing.CreatedAt
	} else if review.ID == "" {
		review.ID = uuid.NewString()
	}
	r.items[key] = review
	return review, nil
}

func (r *reviewRepositoryInMemory) ListByBusiness(businessID string, limit int) ([]domain.Review, error) {
	result := r.byBusiness(businessID)
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *reviewRepositoryInMemory) Summary(businessID string) (domain.RatingSummary, error) {
	return domain.SummarizeRatings(r.byBusiness(businessID)), nil
}

func (r *reviewRepositoryInMemory) byBusiness(businessID string) []domain.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Review, 0)
	for _, review := range r.items {
		if review.BusinessID == businessID {
			result = append(result, review)
		}
	}
	return result
}

var (
	_ domain.FollowRepository = (*FollowRepository)(nil)
	_ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
)
