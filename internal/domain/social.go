package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxReviewRunes ограничивает длину текста отзыва.
const MaxReviewRunes = 2000

// Business хранит профиль продавца или организатора.
type Business struct {
	ID        string
	OwnerID   string
	Name      string
	Address   string
	Location  GeoPoint
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет профиль бизнеса.
func (b *Business) Validate() []error {
	var errs []error
	if b.ID == "" {
		errs = append(errs, ErrBusinessRequired)
	}
	if b.OwnerID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if strings.TrimSpace(b.Name) == "" {
		errs = append(errs, ErrBusinessRequired)
	}
	if err := b.Location.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Follow связывает подписчика с пользователем или бизнесом.
type Follow struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}

// FollowCounts агрегирует социальный граф.
type FollowCounts struct {
	Followers int64
	Following int64
}

// Review хранит отзыв о бизнесе. Один автор оставляет не более одного отзыва бизнесу.
type Review struct {
	ID         string
	BusinessID string
	AuthorID   string
	OrderID    string
	Rating     int32
	Comment    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate проверяет оценку и текст.
func (r *Review) Validate() []error {
	var errs []error
	if r.BusinessID == "" {
		errs = append(errs, ErrBusinessRequired)
	}
	if r.AuthorID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if r.Rating < 1 || r.Rating > 5 {
		errs = append(errs, ErrRatingInvalid)
	}
	if utf8.RuneCountInString(r.Comment) > MaxReviewRunes {
		errs = append(errs, ErrReviewTooLong)
	}
	return errs
}

// RatingSummary сводит оценки бизнеса.
type RatingSummary struct {
	Count   int64
	Average float64
	// Histogram[i] хранит число оценок i+1.
	Histogram [5]int64
}

// Add учитывает оценку в сводке.
func (s *RatingSummary) Add(rating int32) {
	s.AddCount(rating, 1)
}

// AddCount учитывает n одинаковых оценок (агрегаты из БД).
func (s *RatingSummary) AddCount(rating int32, n int64) {
	if rating < 1 || rating > 5 || n <= 0 {
		return
	}
	s.Histogram[rating-1] += n
	s.Count += n
	s.recompute()
}

func (s *RatingSummary) recompute() {
	if s.Count == 0 {
		s.Average = 0
		return
	}
	var total int64
	for i, n := range s.Histogram {
		total += int64(i+1) * n
	}
	s.Average = math.Round(float64(total)/float64(s.Count)*100) / 100
}

// SummarizeRatings строит сводку по списку отзывов.
func SummarizeRatings(reviews []Review) RatingSummary {
	var s RatingSummary
	for _, r := range reviews {
		if r.Rating < 1 || r.Rating > 5 {
			continue
		}
		s.Histogram[r.Rating-1]++
		s.Count++
	}
	s.recompute()
	return s
}
