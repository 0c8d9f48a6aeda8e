package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

type subscriptionRepositoryInMemory struct {
	mu       sync.RWMutex
	packages map[string]domain.Package
	subs     map[string][]domain.Subscription
}

// NewSubscriptionRepository создаёт in-memory хранилище пакетов и подписок.
func NewSubscriptionRepository() domain.SubscriptionRepository {
	return &subscriptionRepositoryInMemory{
		packages: make(map[string]domain.Package),
		subs:     make(map[string][]domain.Subscription),
	}
}

func (r *subscriptionRepositoryInMemory) CreatePackage(pkg domain.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packages[pkg.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.packages[pkg.ID] = pkg
	return nil
}

func (r *subscriptionRepositoryInMemory) GetPackage(id string) (domain.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pkg, ok := r.packages[id]
	if !ok {
		return domain.Package{}, domain.ErrPackageNotFound
	}
	return pkg, nil
}

// ListPackages возвращает пакеты по возрастанию цены.
func (r *subscriptionRepositoryInMemory) ListPackages(activeOnly bool) ([]domain.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Package, 0, len(r.packages))
	for _, pkg := range r.packages {
		if activeOnly && !pkg.Active {
			continue
		}
		result = append(result, pkg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PriceMinor != result[j].PriceMinor {
			return result[i].PriceMinor < result[j].PriceMinor
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *subscriptionRepositoryInMemory) CreateSubscription(sub domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subs[sub.UserID] {
		if existing.ID == sub.ID {
			return domain.ErrAlreadyExists
		}
	}
	r.subs[sub.UserID] = append(r.subs[sub.UserID], sub)
	return nil
}

func (r *subscriptionRepositoryInMemory) ListByUser(userID string) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := append([]domain.Subscription(nil), r.subs[userID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].PurchasedAt.After(result[j].PurchasedAt) })
	return result, nil
}

var _ domain.SubscriptionRepository = (*subscriptionRepositoryInMemory)(nil)
