package domain_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

func TestSummarizeRatings(t *testing.T) {
	got := domain.SummarizeRatings([]domain.Review{{Rating: 5}, {Rating: 4}, {Rating: 4}, {Rating: 0}})
	want := domain.RatingSummary{Count: 3, Average: 4.33, Histogram: [5]int64{0, 0, 0, 2, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	var incremental domain.RatingSummary
	incremental.Add(5)
	incremental.Add(4)
	incremental.Add(4)
	incremental.Add(9)
	if diff := cmp.Diff(want, incremental); diff != "" {
		t.Fatalf("incremental summary mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, domain.RatingSummary{}, domain.SummarizeRatings(nil))
}

func TestReviewValidate(t *testing.T) {
	ok := domain.Review{BusinessID: "b", AuthorID: "u", Rating: 3}
	assert.Empty(t, ok.Validate())

	bad := domain.Review{BusinessID: "b", AuthorID: "u", Rating: 6, Comment: strings.Repeat("x", domain.MaxReviewRunes+1)}
	errs := bad.Validate()
	assert.Contains(t, errs, domain.ErrRatingInvalid)
	assert.Contains(t, errs, domain.ErrReviewTooLong)
}
