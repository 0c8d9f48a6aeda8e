package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

type followRepository struct {
	db *sql.DB
}

// NewFollowRepository создаёт PostgreSQL-реализацию FollowRepository.
func NewFollowRepository(store *Store) domain.FollowRepository {
	return &followRepository{db: store.DB()}
}

func (r *followRepository) Follow(followerID, followeeID string, at time.Time) (bool, error) {
	if followerID == followeeID {
		return false, domain.ErrSelfFollow
	}

	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`, followerID, followeeID, at)
	if err != nil {
		if isCheckViolation(err) {
			return false, domain.ErrSelfFollow
		}
		return false, fmt.Errorf("insert follow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("follow rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *followRepository) Unfollow(followerID, followeeID string) (bool, error) {
	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2
	`, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unfollow rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *followRepository) ListFollowers(userID string, limit, offset int) ([]string, error) {
	return r.page(`SELECT follower_id FROM follows WHERE followee_id = $1`, userID, limit, offset)
}

func (r *followRepository) ListFollowing(userID string, limit, offset int) ([]string, error) {
	return r.page(`SELECT followee_id FROM follows WHERE follower_id = $1`, userID, limit, offset)
}

func (r *followRepository) Counts(userID string) (domain.FollowCounts, error) {
	ctx, cancel := opContext()
	defer cancel()

	var counts domain.FollowCounts
	if err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE followee_id = $1),
			(SELECT COUNT(*) FROM follows WHERE follower_id = $1)
	`, userID).Scan(&counts.Followers, &counts.Following); err != nil {
		return domain.FollowCounts{}, fmt.Errorf("count follows: %w", err)
	}
	return counts, nil
}

// page возвращает страницу связей, новые первыми.
func (r *followRepository) page(query, userID string, limit, offset int) ([]string, error) {
	ctx, cancel := opContext()
	defer cancel()

	if offset < 0 {
		offset = 0
	}
	query += ` ORDER BY created_at DESC, 1 ASC OFFSET $2`
	args := []any{userID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follows: %w", err)
	}
	return ids, nil
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository создаёт PostgreSQL-реализацию ReviewRepository.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{db: store.DB()}
}

// Upsert хранит один отзыв на пару бизнес/автор; повторный отзыв заменяет текст и оценку.
func (r *reviewRepository) Upsert(review domain.Review) (domain.Review, error) {
	ctx, cancel := opContext()
	defer cancel()

	if review.ID == "" {
		review.ID = uuid.NewString()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reviews (id, business_id, author_id, order_id, rating, comment, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (business_id, author_id) DO UPDATE
		SET order_id = EXCLUDED.order_id,
		    rating = EXCLUDED.rating,
		    comment = EXCLUDED.comment,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`,
		review.ID, review.BusinessID, review.AuthorID, review.OrderID,
		review.Rating, review.Comment, review.CreatedAt, review.UpdatedAt,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return domain.Review{}, fmt.Errorf("upsert review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) ListByBusiness(businessID string, limit int) ([]domain.Review, error) {
	ctx, cancel := opContext()
	defer cancel()

	query := `
		SELECT id, business_id, author_id, order_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE business_id = $1
		ORDER BY updated_at DESC, id ASC`
	args := []any{businessID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(
			&review.ID, &review.BusinessID, &review.AuthorID, &review.OrderID,
			&review.Rating, &review.Comment, &review.CreatedAt, &review.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

func (r *reviewRepository) Summary(businessID string) (domain.RatingSummary, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT rating, COUNT(*) FROM reviews WHERE business_id = $1 GROUP BY rating
	`, businessID)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("summarize reviews: %w", err)
	}
	defer rows.Close()

	var summary domain.RatingSummary
	for rows.Next() {
		var (
			rating int32
			n      int64
		)
		if err := rows.Scan(&rating, &n); err != nil {
			return domain.RatingSummary{}, fmt.Errorf("scan rating bucket: %w", err)
		}
		summary.AddCount(rating, n)
	}
	if err := rows.Err(); err != nil {
		return domain.RatingSummary{}, fmt.Errorf("iterate rating buckets: %w", err)
	}
	return summary, nil
}

type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository создаёт PostgreSQL-реализацию SubscriptionRepository.
func NewSubscriptionRepository(store *Store) domain.SubscriptionRepository {
	return &subscriptionRepository{db: store.DB()}
}

func (r *subscriptionRepository) CreatePackage(pkg domain.Package) error {
	ctx, cancel := opContext()
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO packages (id, name, event_credits, price_minor, currency, duration_days, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, pkg.ID, pkg.Name, pkg.EventCredits, pkg.PriceMinor, pkg.Currency, pkg.DurationDays, pkg.Active, pkg.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert package: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetPackage(id string) (domain.Package, error) {
	ctx, cancel := opContext()
	defer cancel()

	pkg, err := scanPackage(r.db.QueryRowContext(ctx, `
		SELECT id, name, event_credits, price_minor, currency, duration_days, active, created_at
		FROM packages WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Package{}, domain.ErrPackageNotFound
		}
		return domain.Package{}, fmt.Errorf("select package: %w", err)
	}
	return pkg, nil
}

// ListPackages возвращает пакеты по возрастанию цены.
func (r *subscriptionRepository) ListPackages(activeOnly bool) ([]domain.Package, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, event_credits, price_minor, currency, duration_days, active, created_at
		FROM packages
		WHERE active OR NOT $1
		ORDER BY price_minor ASC, id ASC
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	packages := make([]domain.Package, 0)
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}
	return packages, nil
}

func (r *subscriptionRepository) CreateSubscription(sub domain.Subscription) error {
	ctx, cancel := opContext()
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, package_id, event_credits, purchased_at, expires_at, payment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sub.ID, sub.UserID, sub.PackageID, sub.EventCredits, sub.PurchasedAt, sub.ExpiresAt, sub.PaymentID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) ListByUser(userID string) ([]domain.Subscription, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, package_id, event_credits, purchased_at, expires_at, payment_id
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY purchased_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PackageID, &sub.EventCredits, &sub.PurchasedAt, &sub.ExpiresAt, &sub.PaymentID); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

func scanPackage(row rowScanner) (domain.Package, error) {
	var pkg domain.Package
	err := row.Scan(&pkg.ID, &pkg.Name, &pkg.EventCredits, &pkg.PriceMinor, &pkg.Currency, &pkg.DurationDays, &pkg.Active, &pkg.CreatedAt)
	return pkg, err
}

type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создаёт PostgreSQL-реализацию NotificationRepository.
func NewNotificationRepository(store *Store) domain.NotificationRepository {
	return &notificationRepository{db: store.DB()}
}

// CreateMany вставляет пачку в одной транзакции; дубликаты (user_id, source_id) пропускаются.
func (r *notificationRepository) CreateMany(items []domain.Notification) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	ctx, cancel := opContext()
	defer cancel()

	created := 0
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		created = 0
		for _, n := range items {
			if n.ID == "" {
				n.ID = uuid.NewString()
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO notifications (id, user_id, kind, title, body, reference_id, source_id, created_at, read_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				ON CONFLICT DO NOTHING
			`, n.ID, n.UserID, string(n.Kind), n.Title, n.Body, n.ReferenceID, n.SourceID, n.CreatedAt, nullableTime(n.ReadAt))
			if err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
			if affected, _ := res.RowsAffected(); affected > 0 {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (r *notificationRepository) List(userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	ctx, cancel := opContext()
	defer cancel()

	query := `
		SELECT id, user_id, kind, title, body, reference_id, source_id, created_at, read_at
		FROM notifications
		WHERE user_id = $1 AND (read_at IS NULL OR NOT $2)
		ORDER BY created_at DESC, id ASC`
	args := []any{userID, unreadOnly}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Notification, 0)
	for rows.Next() {
		var (
			n      domain.Notification
			kind   string
			readAt sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Body, &n.ReferenceID, &n.SourceID, &n.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = domain.NotificationKind(kind)
		n.ReadAt = timeFromNull(readAt)
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return result, nil
}

func (r *notificationRepository) MarkRead(userID string, ids []string, at time.Time) (int, error) {
	ctx, cancel := opContext()
	defer cancel()

	query := `UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL`
	args := []any{userID, at}
	if len(ids) > 0 {
		query += ` AND id = ANY($3)`
		args = append(args, ids)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("notification rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *notificationRepository) CountUnread(userID string) (int, error) {
	ctx, cancel := opContext()
	defer cancel()

	var n int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL
	`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

var (
	_ domain.FollowRepository       = (*followRepository)(nil)
	_ domain.ReviewRepository       = (*reviewRepository)(nil)
	_ domain.SubscriptionRepository = (*subscriptionRepository)(nil)
	_ domain.NotificationRepository = (*notificationRepository)(nil)
)
