package postgres

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

func TestEventStore_PostgresSearchAndSave(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	events := NewEventStore(store)

	now := time.Now().UTC().Round(time.Microsecond)
	near := sampleEvent("event-near", now.Add(48*time.Hour), domain.GeoPoint{Lat: 12.9716, Lng: 77.5946})
	far := sampleEvent("event-far", now.Add(24*time.Hour), domain.GeoPoint{Lat: 13.0827, Lng: 80.2707})
	draft := sampleEvent("event-draft", now.Add(24*time.Hour), domain.GeoPoint{Lat: 12.9716, Lng: 77.5946})
	draft.Status = domain.EventStatusDraft
	for _, e := range []domain.Event{near, far, draft} {
		require.NoError(t, events.Create(e))
	}
	require.ErrorIs(t, events.Create(near), domain.ErrAlreadyExists)

	all, err := events.List(domain.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "event-far", all[0].ID)

	origin := domain.GeoPoint{Lat: 12.97, Lng: 77.59}
	nearby, err := events.List(domain.EventFilter{Near: &origin, RadiusKm: 10})
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	require.Equal(t, "event-near", nearby[0].ID)

	byText, err := events.List(domain.EventFilter{Query: "JAZZ", Statuses: []domain.EventStatus{domain.EventStatusPublished, domain.EventStatusDraft}})
	require.NoError(t, err)
	require.Len(t, byText, 3)

	count, err := events.CountByOrganizer("organizer-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	got, err := events.Get(near.ID)
	require.NoError(t, err)
	got.Title = "Jazz night, extended"
	require.NoError(t, events.Save(got))
	require.ErrorIs(t, events.Save(got), domain.ErrVersionConflict)

	_, err = events.Get("missing")
	require.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventStore_PostgresSeatLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	events := NewEventStore(store)

	now := time.Now().UTC().Round(time.Microsecond)
	event := sampleEvent("event-seats", now.Add(72*time.Hour), domain.GeoPoint{Lat: 12.9716, Lng: 77.5946})
	event.Capacity = 3
	require.NoError(t, events.Create(event))

	require.NoError(t, events.ReserveSeats("order-1", map[string]int32{event.ID: 2}, now))
	require.NoError(t, events.ReserveSeats("order-1", map[string]int32{event.ID: 2}, now), "reserve is idempotent per order")
	require.ErrorIs(t, events.ReserveSeats("order-2", map[string]int32{event.ID: 2}, now), domain.ErrSeatsUnavailable)

	reg, err := events.Register(domain.Registration{EventID: event.ID, UserID: "walk-in", Seats: 1, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = events.Register(domain.Registration{EventID: event.ID, UserID: "late", Seats: 1, CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, domain.ErrSeatsUnavailable)

	dup, err := events.Register(domain.Registration{EventID: event.ID, UserID: "walk-in", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.Equal(t, reg.ID, dup.ID)

	confirmed, err := events.ConfirmSeats("order-1", "buyer", now)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	require.EqualValues(t, 2, confirmed[0].Seats)

	current, err := events.Get(event.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, current.SeatsTaken)
	require.EqualValues(t, 0, current.SeatsReserved)

	require.NoError(t, events.ReleaseSeats("order-1", now), "release after confirm is a no-op")

	canceled, err := events.Cancel(event.ID, "walk-in", now)
	require.NoError(t, err)
	require.Equal(t, domain.RegistrationStatusCanceled, canceled.Status)
	_, err = events.Cancel(event.ID, "walk-in", now)
	require.ErrorIs(t, err, domain.ErrRegistrationNotFound)

	active, err := events.ListByEvent(event.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "buyer", active[0].UserID)

	shrunk, err := events.Get(event.ID)
	require.NoError(t, err)
	shrunk.Capacity = 1
	require.ErrorIs(t, events.Save(shrunk), domain.ErrEventCapacityTooLow)
}

func TestEventStore_PostgresRevokeReturnsOnlyThatOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	events := NewEventStore(store)

	now := time.Now().UTC().Round(time.Microsecond)
	event := sampleEvent("event-revoke", now.Add(72*time.Hour), domain.GeoPoint{Lat: 12.9716, Lng: 77.5946})
	event.Capacity = 10
	require.NoError(t, events.Create(event))

	require.NoError(t, events.ReserveSeats("order-a", map[string]int32{event.ID: 2}, now))
	_, err := events.ConfirmSeats("order-a", "buyer", now)
	require.NoError(t, err)
	require.NoError(t, events.ReserveSeats("order-b", map[string]int32{event.ID: 1}, now))
	_, err = events.ConfirmSeats("order-b", "buyer", now)
	require.NoError(t, err)

	revoked, err := events.RevokeSeats("order-b", "buyer", now)
	require.NoError(t, err)
	require.Len(t, revoked, 1)
	require.Equal(t, domain.RegistrationStatusActive, revoked[0].Status)
	require.EqualValues(t, 2, revoked[0].Seats)

	again, err := events.RevokeSeats("order-b", "buyer", now)
	require.NoError(t, err)
	require.Empty(t, again)

	current, err := events.Get(event.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, current.SeatsTaken)

	_, err = events.RevokeSeats("order-a", "buyer", now)
	require.NoError(t, err)
	reg, err := events.GetRegistration(event.ID, "buyer")
	require.NoError(t, err)
	require.Equal(t, domain.RegistrationStatusCanceled, reg.Status)

	current, err = events.Get(event.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, current.SeatsTaken)
}

func TestEventStore_PostgresConcurrentReservationsNeverOversell(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	events := NewEventStore(store)

	now := time.Now().UTC()
	event := sampleEvent("event-race", now.Add(24*time.Hour), domain.GeoPoint{Lat: 1, Lng: 1})
	event.Capacity = 5
	require.NoError(t, events.Create(event))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := events.ReserveSeats(string(rune('a'+i))+"-order", map[string]int32{event.ID: 1}, now)
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 5, success)
	current, err := events.Get(event.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, current.SeatsReserved)
}

func TestEventStore_PostgresReserveRejectsClosedEvent(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	events := NewEventStore(store)

	now := time.Now().UTC()
	started := sampleEvent("event-started", now.Add(-time.Hour), domain.GeoPoint{Lat: 1, Lng: 1})
	require.NoError(t, events.Create(started))

	require.ErrorIs(t, events.ReserveSeats("order-x", map[string]int32{started.ID: 1}, now), domain.ErrEventNotOpen)
	require.ErrorIs(t, events.ReserveSeats("order-y", map[string]int32{"missing": 1}, now), domain.ErrEventNotFound)

	ended, err := events.ListEndedBefore(now.Add(3*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, ended, 1)
}

func sampleEvent(id string, startsAt time.Time, at domain.GeoPoint) domain.Event {
	return domain.Event{
		ID:          id,
		OrganizerID: "organizer-1",
		Title:       "Jazz night " + id,
		Description: "Live music",
		Category:    "music",
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(2 * time.Hour),
		Address:     "Church Street",
		Location:    at,
		PriceMinor:  50000,
		Currency:    "INR",
		Status:      domain.EventStatusPublished,
		CreatedAt:   startsAt.Add(-72 * time.Hour),
		UpdatedAt:   startsAt.Add(-72 * time.Hour),
	}
}
