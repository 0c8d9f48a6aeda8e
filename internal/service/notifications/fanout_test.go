package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

var testNow = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	fanout  *Fanout
	inbox   *Service
	repo    domain.NotificationRepository
	follows *memory.FollowRepository
	events  *memory.EventStore
	biz     domain.BusinessRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    memory.NewNotificationRepository(),
		follows: memory.NewFollowRepository(),
		events:  memory.NewEventStore(),
		biz:     memory.NewBusinessRepository(),
	}
	clk := clock.NewManual(testNow)
	f.fanout = NewFanout(FanoutDependencies{
		Notifications: f.repo,
		Follows:       f.follows,
		Registrations: f.events,
		Businesses:    f.biz,
		Clock:         clk,
	})
	f.inbox = NewService(f.repo, clk, nil)
	return f
}

func message(t *testing.T, id, eventType string, payload any) domain.OutboxMessage {
	t.Helper()
	msg, err := domain.NewOutboxMessage("test", "agg", eventType, payload)
	require.NoError(t, err)
	msg.ID = id
	return msg
}

func inbox(t *testing.T, f *fixture, userID string) []domain.Notification {
	t.Helper()
	items, _, err := f.inbox.List(domain.Actor{UserID: userID}, false, 0)
	require.NoError(t, err)
	return items
}

func TestEventPublishedReachesFollowers(t *testing.T) {
	f := newFixture(t)
	for _, follower := range []string{"alice", "bob"} {
		_, err := f.follows.Follow(follower, "org", testNow)
		require.NoError(t, err)
	}
	msg := message(t, "m1", domain.EventTypeEventPublished, domain.EventPublishedPayload{EventID: "ev-1", OrganizerID: "org", Title: "Jazz Night", StartsAt: testNow})

	require.NoError(t, f.fanout.Publish(msg))
	require.NoError(t, f.fanout.Publish(msg), "redelivery is idempotent")

	for _, user := range []string{"alice", "bob"} {
		items := inbox(t, f, user)
		require.Len(t, items, 1)
		assert.Equal(t, domain.NotificationEventPublished, items[0].Kind)
		assert.Equal(t, "ev-1", items[0].ReferenceID)
	}
	assert.Empty(t, inbox(t, f, "org"))
}

func TestEventCanceledReachesAttendees(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.events.Create(domain.Event{ID: "ev-1", OrganizerID: "org", Status: domain.EventStatusPublished}))
	_, err := f.events.Register(domain.Registration{EventID: "ev-1", UserID: "alice"})
	require.NoError(t, err)

	require.NoError(t, f.fanout.Publish(message(t, "m1", domain.EventTypeEventCanceled, domain.EventCanceledPayload{EventID: "ev-1", Title: "Jazz", Reason: "rain"})))

	items := inbox(t, f, "alice")
	require.Len(t, items, 1)
	assert.Equal(t, "rain", items[0].Body)
}

func TestOrderStatusWithOTP(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.biz.Upsert(domain.Business{ID: "biz-1", OwnerID: "owner"}))

	require.NoError(t, f.fanout.Publish(message(t, "m1", domain.EventTypeOrderStatusChanged, domain.OrderStatusChangedPayload{
		OrderID: "o1", CustomerID: "alice", BusinessID: "biz-1",
		From: domain.OrderStatusReady, To: domain.OrderStatusOutForDelivery, DeliveryOTP: "123456",
	})))
	items := inbox(t, f, "alice")
	require.Len(t, items, 2)
	kinds := []domain.NotificationKind{items[0].Kind, items[1].Kind}
	assert.ElementsMatch(t, []domain.NotificationKind{domain.NotificationOrderStatusChanged, domain.NotificationDeliveryOTP}, kinds)
	assert.Empty(t, inbox(t, f, "owner"))

	require.NoError(t, f.fanout.Publish(message(t, "m2", domain.EventTypeOrderStatusChanged, domain.OrderStatusChangedPayload{
		OrderID: "o2", CustomerID: "alice", BusinessID: "biz-1", To: domain.OrderStatusCanceled,
	})))
	assert.Len(t, inbox(t, f, "owner"), 1)
}

func TestChatFollowAndReview(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.fanout.Publish(message(t, "m1", domain.EventTypeChatMessageSent, domain.ChatMessageSentPayload{
		ChatID: "c1", SenderID: "alice", Body: "hi", Participants: []string{"alice", "bob", "carol"},
	})))
	require.NoError(t, f.fanout.Publish(message(t, "m2", domain.EventTypeUserFollowed, domain.UserFollowedPayload{FollowerID: "bob", FolloweeID: "alice"})))
	require.NoError(t, f.fanout.Publish(message(t, "m3", domain.EventTypeReviewPosted, domain.ReviewPostedPayload{ReviewID: "r1", OwnerID: "owner", AuthorID: "bob", Rating: 4})))
	require.NoError(t, f.fanout.Publish(message(t, "m4", domain.EventTypePackagePurchased, domain.PackagePurchasedPayload{UserID: "bob"})))

	assert.Len(t, inbox(t, f, "bob"), 1)
	assert.Len(t, inbox(t, f, "carol"), 1)
	alice := inbox(t, f, "alice")
	require.Len(t, alice, 1)
	assert.Equal(t, domain.NotificationNewFollower, alice[0].Kind)
	owner := inbox(t, f, "owner")
	require.Len(t, owner, 1)
	assert.Equal(t, "4/5 from bob", owner[0].Body)
}

type recordingLive struct {
	messages []domain.Message
}

func (r *recordingLive) Publish(msg domain.Message) {
	r.messages = append(r.messages, msg)
}

func TestChatMessagePushedToLiveHub(t *testing.T) {
	live := &recordingLive{}
	repo := memory.NewNotificationRepository()
	fanout := NewFanout(FanoutDependencies{
		Notifications: repo,
		Follows:       memory.NewFollowRepository(),
		Registrations: memory.NewEventStore(),
		Businesses:    memory.NewBusinessRepository(),
		Live:          live,
		Clock:         clock.NewManual(testNow),
	})

	require.NoError(t, fanout.Publish(message(t, "m1", domain.EventTypeChatMessageSent, domain.ChatMessageSentPayload{
		ChatID: "c1", MessageID: "msg-7", Seq: 7, SenderID: "alice", Body: "hi",
		Participants: []string{"alice", "bob"}, OccurredAt: testNow,
	})))
	require.NoError(t, fanout.Publish(message(t, "m2", domain.EventTypeUserFollowed, domain.UserFollowedPayload{FollowerID: "bob", FolloweeID: "alice"})))

	require.Len(t, live.messages, 1)
	assert.Equal(t, domain.Message{
		ID: "msg-7", ChatID: "c1", Seq: 7, SenderID: "alice", Body: "hi", CreatedAt: testNow,
	}, live.messages[0])
}

func TestMalformedPayload(t *testing.T) {
	f := newFixture(t)
	err := f.fanout.Publish(domain.OutboxMessage{ID: "m1", EventType: domain.EventTypeUserFollowed, Payload: []byte("{")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInboxMarkRead(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"m1", "m2"} {
		require.NoError(t, f.fanout.Publish(message(t, id, domain.EventTypeUserFollowed, domain.UserFollowedPayload{FollowerID: id, FolloweeID: "alice"})))
	}
	alice := domain.Actor{UserID: "alice"}

	items, unread, err := f.inbox.List(alice, true, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, unread)

	n, err := f.inbox.MarkRead(alice, []string{items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.inbox.MarkRead(alice, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, unread, err = f.inbox.List(alice, false, 0)
	require.NoError(t, err)
	assert.Zero(t, unread)

	_, _, err = f.inbox.List(domain.Actor{}, false, 0)
	assert.ErrorIs(t, err, domain.ErrUserRequired)
}
