package memory_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

func newEvent(id string, capacity int32, startsAt time.Time) domain.Event {
	return domain.Event{
		ID:          id,
		OrganizerID: "org-1",
		Title:       "Meetup " + id,
		Category:    "tech",
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(2 * time.Hour),
		Location:    domain.GeoPoint{Lat: 12.97, Lng: 77.59},
		Capacity:    capacity,
		Status:      domain.EventStatusPublished,
	}
}

func TestEventStore_RegisterRespectsCapacity(t *testing.T) {
	store := memory.NewEventStore()
	now := time.Now().UTC()
	require.NoError(t, store.Create(newEvent("e1", 10, now.Add(24*time.Hour))))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Register(domain.Registration{EventID: "e1", UserID: string(rune('a' + i)), Seats: 1, CreatedAt: now})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrSeatsUnavailable)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	event, err := store.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, int32(10), event.SeatsTaken)
}

func TestEventStore_RegisterTwiceReturnsExisting(t *testing.T) {
	store := memory.NewEventStore()
	now := time.Now().UTC()
	require.NoError(t, store.Create(newEvent("e1", 0, now.Add(time.Hour))))

	first, err := store.Register(domain.Registration{EventID: "e1", UserID: "u1", CreatedAt: now})
	require.NoError(t, err)

	second, err := store.Register(domain.Registration{EventID: "e1", UserID: "u1", CreatedAt: now})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, first.ID, second.ID)

	_, err = store.Cancel("e1", "u1", now)
	require.NoError(t, err)
	_, err = store.Cancel("e1", "u1", now)
	require.ErrorIs(t, err, domain.ErrRegistrationNotFound)

	event, err := store.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, int32(0), event.SeatsTaken)
}

func TestEventStore_ReserveConfirmRelease(t *testing.T) {
	store := memory.NewEventStore()
	now := time.Now().UTC()
	require.NoError(t, store.Create(newEvent("e1", 5, now.Add(time.Hour))))
	require.NoError(t, store.Create(newEvent("e2", 2, now.Add(time.Hour))))

	// На e2 не хватает мест, поэтому не резервируется ничего.
	err := store.ReserveSeats("order-1", map[string]int32{"e1": 2, "e2": 3}, now)
	require.ErrorIs(t, err, domain.ErrSeatsUnavailable)
	e1, _ := store.Get("e1")
	assert.Equal(t, int32(0), e1.SeatsReserved)

	require.NoError(t, store.ReserveSeats("order-1", map[string]int32{"e1": 2, "e2": 2}, now))
	// Повторный резерв того же заказа ничего не меняет.
	require.NoError(t, store.ReserveSeats("order-1", map[string]int32{"e1": 2, "e2": 2}, now))
	e1, _ = store.Get("e1")
	assert.Equal(t, int32(2), e1.SeatsReserved)

	regs, err := store.ConfirmSeats("order-1", "buyer", now)
	require.NoError(t, err)
	assert.Len(t, regs, 2)
	e1, _ = store.Get("e1")
	assert.Equal(t, int32(0), e1.SeatsReserved)
	assert.Equal(t, int32(2), e1.SeatsTaken)

	require.NoError(t, store.ReserveSeats("order-2", map[string]int32{"e1": 3}, now))
	require.NoError(t, store.ReleaseSeats("order-2", now))
	require.NoError(t, store.ReleaseSeats("order-2", now))
	e1, _ = store.Get("e1")
	assert.Equal(t, int32(0), e1.SeatsReserved)
	assert.Equal(t, int32(3), e1.SeatsAvailable())

	attendees, err := store.ListByEvent("e1")
	require.NoError(t, err)
	require.Len(t, attendees, 1)
	assert.Equal(t, "buyer", attendees[0].UserID)
	assert.Equal(t, "order-1", attendees[0].OrderID)
}

func TestEventStore_SaveKeepsCountersAndChecksVersion(t *testing.T) {
	store := memory.NewEventStore()
	now := time.Now().UTC()
	require.NoError(t, store.Create(newEvent("e1", 5, now.Add(time.Hour))))
	_, err := store.Register(domain.Registration{EventID: "e1", UserID: "u1", Seats: 3, CreatedAt: now})
	require.NoError(t, err)

	event, err := store.Get("e1")
	require.NoError(t, err)
	event.Capacity = 2
	require.ErrorIs(t, store.Save(event), domain.ErrEventCapacityTooLow)

	event.Capacity = 4
	event.SeatsTaken = 0
	require.NoError(t, store.Save(event))
	require.ErrorIs(t, store.Save(event), domain.ErrVersionConflict)

	saved, err := store.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), saved.SeatsTaken)
	assert.Equal(t, int64(1), saved.Version)
}

func TestEventStore_ListNearSortedByDistance(t *testing.T) {
	store := memory.NewEventStore()
	now := time.Now().UTC()

	near := newEvent("near", 0, now.Add(3*time.Hour))
	near.Location = domain.GeoPoint{Lat: 12.971, Lng: 77.594}
	mid := newEvent("mid", 0, now.Add(time.Hour))
	mid.Location = domain.GeoPoint{Lat: 13.00, Lng: 77.60}
	far := newEvent("far", 0, now.Add(time.Hour))
	far.Location = domain.GeoPoint{Lat: 28.61, Lng: 77.20}
	for _, e := range []domain.Event{near, mid, far} {
		require.NoError(t, store.Create(e))
	}

	center := domain.GeoPoint{Lat: 12.9716, Lng: 77.5946}
	got, err := store.List(domain.EventFilter{Near: &center, RadiusKm: 20})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)

	byTime, err := store.List(domain.EventFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, byTime, 2)
	assert.Equal(t, "mid", byTime[0].ID)
	assert.Equal(t, "near", byTime[1].ID)

	count, err := store.CountByOrganizer("org-1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), count)
}
