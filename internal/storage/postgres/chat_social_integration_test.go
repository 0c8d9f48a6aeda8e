package postgres

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

func TestChatRepository_PostgresDirectAndSequence(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	chats := NewChatRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	direct := domain.Chat{ID: "chat-1", Kind: domain.ChatKindDirect, Participants: []string{"bob", "alice"}, CreatedBy: "bob", CreatedAt: now}
	require.NoError(t, chats.Create(direct))

	dup := direct
	dup.ID = "chat-2"
	require.ErrorIs(t, chats.Create(dup), domain.ErrAlreadyExists)

	found, err := chats.FindDirect("alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "chat-1", found.ID)
	require.Equal(t, []string{"bob", "alice"}, found.Participants)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := chats.AppendMessage(domain.Message{ChatID: "chat-1", SenderID: "bob", Body: fmt.Sprintf("msg %d", i), CreatedAt: now})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages, err := chats.ListMessages("chat-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 10)
	for i, msg := range messages {
		require.EqualValues(t, i+1, msg.Seq)
	}

	tail, err := chats.ListMessages("chat-1", 7, 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.EqualValues(t, 8, tail[0].Seq)

	_, err = chats.AppendMessage(domain.Message{ChatID: "missing", SenderID: "bob", Body: "x", CreatedAt: now})
	require.ErrorIs(t, err, domain.ErrChatNotFound)
}

func TestChatRepository_PostgresEventChatMembership(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	chats := NewChatRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	require.NoError(t, chats.Create(domain.Chat{ID: "group-1", Kind: domain.ChatKindGroup, EventID: "event-1", Title: "Jazz night", Participants: []string{"organizer"}, CreatedAt: now}))
	require.NoError(t, chats.AddParticipant("group-1", "guest"))
	require.NoError(t, chats.AddParticipant("group-1", "guest"))
	require.ErrorIs(t, chats.AddParticipant("missing", "guest"), domain.ErrChatNotFound)

	chat, err := chats.FindByEvent("event-1")
	require.NoError(t, err)
	require.Equal(t, []string{"organizer", "guest"}, chat.Participants)

	require.NoError(t, chats.Create(domain.Chat{ID: "chat-dm", Kind: domain.ChatKindDirect, Participants: []string{"guest", "friend"}, CreatedAt: now.Add(-time.Hour)}))
	_, err = chats.AppendMessage(domain.Message{ChatID: "chat-dm", SenderID: "friend", Body: "hi", CreatedAt: now.Add(time.Minute)})
	require.NoError(t, err)

	mine, err := chats.ListByUser("guest", 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "chat-dm", mine[0].ID)
}

func TestFollowAndReviewRepositories_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	follows := NewFollowRepository(store)
	reviews := NewReviewRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	created, err := follows.Follow("alice", "biz-owner", now)
	require.NoError(t, err)
	require.True(t, created)
	created, err = follows.Follow("alice", "biz-owner", now)
	require.NoError(t, err)
	require.False(t, created)
	_, err = follows.Follow("bob", "biz-owner", now.Add(time.Second))
	require.NoError(t, err)
	_, err = follows.Follow("alice", "alice", now)
	require.ErrorIs(t, err, domain.ErrSelfFollow)

	followers, err := follows.ListFollowers("biz-owner", 10, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "alice"}, followers)

	counts, err := follows.Counts("biz-owner")
	require.NoError(t, err)
	require.Equal(t, domain.FollowCounts{Followers: 2}, counts)

	removed, err := follows.Unfollow("alice", "biz-owner")
	require.NoError(t, err)
	require.True(t, removed)

	first, err := reviews.Upsert(domain.Review{BusinessID: "biz-1", AuthorID: "alice", Rating: 5, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	second, err := reviews.Upsert(domain.Review{BusinessID: "biz-1", AuthorID: "alice", Rating: 3, Comment: "changed my mind", CreatedAt: now.Add(time.Hour), UpdatedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.CreatedAt.Equal(now))

	_, err = reviews.Upsert(domain.Review{BusinessID: "biz-1", AuthorID: "bob", Rating: 4, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	summary, err := reviews.Summary("biz-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.Count)
	require.InDelta(t, 3.5, summary.Average, 0.001)

	listed, err := reviews.ListByBusiness("biz-1", 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "alice", listed[0].AuthorID)
}

func TestSubscriptionAndNotificationRepositories_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	subs := NewSubscriptionRepository(store)
	inbox := NewNotificationRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	require.NoError(t, subs.CreatePackage(domain.Package{ID: "pro", Name: "Pro", EventCredits: 10, PriceMinor: 99900, Currency: "INR", DurationDays: 30, Active: true, CreatedAt: now}))
	require.NoError(t, subs.CreatePackage(domain.Package{ID: "old", Name: "Legacy", EventCredits: 1, PriceMinor: 100, Currency: "INR", DurationDays: 30, Active: false, CreatedAt: now}))
	require.ErrorIs(t, subs.CreatePackage(domain.Package{ID: "pro", Name: "Pro", EventCredits: 1, DurationDays: 1, CreatedAt: now}), domain.ErrAlreadyExists)

	active, err := subs.ListPackages(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	everything, err := subs.ListPackages(false)
	require.NoError(t, err)
	require.Equal(t, "old", everything[0].ID)

	require.NoError(t, subs.CreateSubscription(domain.Subscription{ID: "sub-1", UserID: "org", PackageID: "pro", EventCredits: 10, PurchasedAt: now, ExpiresAt: now.Add(30 * 24 * time.Hour)}))
	mine, err := subs.ListByUser("org")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	created, err := inbox.CreateMany([]domain.Notification{
		{UserID: "u-1", Kind: domain.NotificationNewFollower, Title: "New follower", SourceID: "msg-1", CreatedAt: now},
		{UserID: "u-1", Kind: domain.NotificationNewFollower, Title: "New follower", SourceID: "msg-1", CreatedAt: now},
		{UserID: "u-1", Kind: domain.NotificationReviewPosted, Title: "Review", SourceID: "msg-2", CreatedAt: now.Add(time.Second)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, created)

	unread, err := inbox.CountUnread("u-1")
	require.NoError(t, err)
	require.Equal(t, 2, unread)

	items, err := inbox.List("u-1", false, 10)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationReviewPosted, items[0].Kind)

	marked, err := inbox.MarkRead("u-1", []string{items[0].ID}, now)
	require.NoError(t, err)
	require.Equal(t, 1, marked)
	marked, err = inbox.MarkRead("u-1", nil, now)
	require.NoError(t, err)
	require.Equal(t, 1, marked)

	left, err := inbox.List("u-1", true, 10)
	require.NoError(t, err)
	require.Empty(t, left)
}
