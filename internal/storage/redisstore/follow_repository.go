package redisstore

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// FollowRepository хранит граф подписок в двух sorted set на пользователя:
// followers:{id} и following:{id}, score хранит время подписки в наносекундах.
type FollowRepository struct {
	c *Client
}

// NewFollowRepository создаёт Redis-реализацию FollowRepository.
func NewFollowRepository(c *Client) *FollowRepository {
	return &FollowRepository{c: c}
}

func (r *FollowRepository) followersKey(userID string) string { return r.c.key("followers", userID) }
func (r *FollowRepository) followingKey(userID string) string { return r.c.key("following", userID) }

func (r *FollowRepository) Follow(followerID, followeeID string, at time.Time) (bool, error) {
	if followerID == followeeID {
		return false, domain.ErrSelfFollow
	}

	ctx, cancel := opContext()
	defer cancel()

	score := float64(at.UnixNano())
	var added *redis.IntCmd
	_, err := r.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.ZAddNX(ctx, r.followingKey(followerID), &redis.Z{Score: score, Member: followeeID})
		pipe.ZAddNX(ctx, r.followersKey(followeeID), &redis.Z{Score: score, Member: followerID})
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis follow: %w", err)
	}
	return added.Val() > 0, nil
}

func (r *FollowRepository) Unfollow(followerID, followeeID string) (bool, error) {
	ctx, cancel := opContext()
	defer cancel()

	var removed *redis.IntCmd
	_, err := r.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, r.followingKey(followerID), followeeID)
		pipe.ZRem(ctx, r.followersKey(followeeID), followerID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis unfollow: %w", err)
	}
	return removed.Val() > 0, nil
}

func (r *FollowRepository) ListFollowers(userID string, limit, offset int) ([]string, error) {
	return r.page(r.followersKey(userID), limit, offset)
}

func (r *FollowRepository) ListFollowing(userID string, limit, offset int) ([]string, error) {
	return r.page(r.followingKey(userID), limit, offset)
}

func (r *FollowRepository) Counts(userID string) (domain.FollowCounts, error) {
	ctx, cancel := opContext()
	defer cancel()

	var followers, following *redis.IntCmd
	_, err := r.c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		followers = pipe.ZCard(ctx, r.followersKey(userID))
		following = pipe.ZCard(ctx, r.followingKey(userID))
		return nil
	})
	if err != nil {
		return domain.FollowCounts{}, fmt.Errorf("redis follow counts: %w", err)
	}
	return domain.FollowCounts{Followers: followers.Val(), Following: following.Val()}, nil
}

// page возвращает участников от новых к старым.
func (r *FollowRepository) page(key string, limit, offset int) ([]string, error) {
	ctx, cancel := opContext()
	defer cancel()

	start, stop := pageBounds(limit, offset)
	ids, err := r.c.rdb.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", key, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// pageBounds переводит limit/offset в включительный диапазон ZRANGE.
func pageBounds(limit, offset int) (int64, int64) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return int64(offset), -1
	}
	return int64(offset), int64(offset + limit - 1)
}

var _ domain.FollowRepository = (*FollowRepository)(nil)
