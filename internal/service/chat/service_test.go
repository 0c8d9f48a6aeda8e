package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

var (
	testNow = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	alice   = domain.Actor{UserID: "alice", Role: domain.RoleUser}
	bob     = domain.Actor{UserID: "bob", Role: domain.RoleUser}
	carol   = domain.Actor{UserID: "carol", Role: domain.RoleUser}
)

type fixture struct {
	svc    *Service
	events *memory.EventStore
	outbox *memory.OutboxRepository
	hub    *Hub
	clock  *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events: memory.NewEventStore(),
		outbox: memory.NewOutboxRepository(),
		hub:    NewHub(1, nil),
		clock:  clock.NewManual(testNow),
	}
	f.svc = NewService(Dependencies{
		Chats:         memory.NewChatRepository(),
		Events:        f.events,
		Registrations: f.events,
		Outbox:        f.outbox,
		Live:          f.hub,
		Clock:         f.clock,
	})
	return f
}

func TestOpenDirectIsUniquePerPair(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.OpenDirect(alice, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.ChatKindDirect, first.Kind)

	second, err := f.svc.OpenDirect(bob, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = f.svc.OpenDirect(alice, "alice")
	assert.ErrorIs(t, err, domain.ErrChatParticipants)
}

func TestSendAssignsSequence(t *testing.T) {
	f := newFixture(t)
	chat, err := f.svc.CreateGroup(alice, "Trip", []string{"bob", "bob", " "})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)

	sub := f.hub.Subscribe(chat.ID)
	defer sub.Close()

	for i, body := range []string{" hi ", "hello"} {
		f.clock.Advance(time.Second)
		msg, err := f.svc.Send(alice, chat.ID, body)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), msg.Seq)
		if i == 0 {
			assert.Equal(t, "hi", msg.Body)
			live := <-sub.C
			assert.Equal(t, msg.ID, live.ID)
		}
	}

	_, err = f.svc.Send(carol, chat.ID, "let me in")
	require.ErrorIs(t, err, domain.ErrNotChatParticipant)
	_, err = f.svc.Send(alice, chat.ID, "   ")
	require.ErrorIs(t, err, domain.ErrMessageBodyRequired)

	msgs, err := f.svc.Messages(bob, chat.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Body)

	_, err = f.svc.Messages(carol, chat.ID, 0, 0)
	assert.ErrorIs(t, err, domain.ErrNotChatParticipant)

	pending, err := f.outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.EventTypeChatMessageSent, pending[0].EventType)
}

func TestChatsOrderedByActivity(t *testing.T) {
	f := newFixture(t)
	older, err := f.svc.OpenDirect(alice, "bob")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	newer, err := f.svc.OpenDirect(alice, "carol")
	require.NoError(t, err)

	chats, err := f.svc.Chats(alice, 0)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, newer.ID, chats[0].ID)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Send(alice, older.ID, "ping")
	require.NoError(t, err)
	chats, err = f.svc.Chats(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, older.ID, chats[0].ID)
}

func TestJoinEventChat(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.events.Create(domain.Event{
		ID:          "ev-1",
		OrganizerID: "org",
		Title:       "Hackathon",
		Status:      domain.EventStatusPublished,
		StartsAt:    testNow.Add(time.Hour),
		EndsAt:      testNow.Add(2 * time.Hour),
	}))

	_, err := f.svc.JoinEventChat(alice, "ev-1")
	require.ErrorIs(t, err, domain.ErrNotChatParticipant)

	_, err = f.events.Register(domain.Registration{EventID: "ev-1", UserID: "alice", CreatedAt: testNow})
	require.NoError(t, err)
	chat, err := f.svc.JoinEventChat(alice, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", chat.EventID)
	assert.ElementsMatch(t, []string{"org", "alice"}, chat.Participants)

	_, err = f.events.Register(domain.Registration{EventID: "ev-1", UserID: "bob", CreatedAt: testNow})
	require.NoError(t, err)
	joined, err := f.svc.JoinEventChat(bob, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, chat.ID, joined.ID)
	assert.True(t, joined.HasParticipant("bob"))

	again, err := f.svc.JoinEventChat(bob, "ev-1")
	require.NoError(t, err)
	assert.Len(t, again.Participants, 3)
}
