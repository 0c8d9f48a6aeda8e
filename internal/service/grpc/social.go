package grpcsvc

import (
	"context"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/service/social"
)

// SocialServer реализует eventhub.v1.SocialService.
type SocialServer struct {
	social *social.Service
	idem   *Idempotency
}

// NewSocialServer создаёт gRPC-адаптер социального сервиса.
func NewSocialServer(svc *social.Service, idem *Idempotency) *SocialServer {
	return &SocialServer{social: svc, idem: idem}
}

func (s *SocialServer) Follow(ctx context.Context, req *eventhubv1.FollowRequest) (*eventhubv1.FollowResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	changed, err := s.social.Follow(actor, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.FollowResponse{Changed: changed}, nil
}

func (s *SocialServer) Unfollow(ctx context.Context, req *eventhubv1.FollowRequest) (*eventhubv1.FollowResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	changed, err := s.social.Unfollow(actor, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.FollowResponse{Changed: changed}, nil
}

func (s *SocialServer) ListFollowers(ctx context.Context, req *eventhubv1.ListFollowsRequest) (*eventhubv1.ListFollowsResponse, error) {
	return s.listFollows(ctx, req, s.social.Followers)
}

func (s *SocialServer) ListFollowing(ctx context.Context, req *eventhubv1.ListFollowsRequest) (*eventhubv1.ListFollowsResponse, error) {
	return s.listFollows(ctx, req, s.social.Following)
}

func (s *SocialServer) listFollows(ctx context.Context, req *eventhubv1.ListFollowsRequest, list func(string, int, int) ([]string, error)) (*eventhubv1.ListFollowsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	ids, err := list(userID, int(req.Limit), int(req.Offset))
	if err != nil {
		return nil, toStatus(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return &eventhubv1.ListFollowsResponse{UserIDs: ids}, nil
}

func (s *SocialServer) GetFollowCounts(ctx context.Context, req *eventhubv1.GetFollowCountsRequest) (*eventhubv1.FollowCountsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	counts, err := s.social.Counts(userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.FollowCountsResponse{Followers: counts.Followers, Following: counts.Following}, nil
}

func (s *SocialServer) UpsertBusiness(ctx context.Context, req *eventhubv1.UpsertBusinessRequest) (*eventhubv1.BusinessResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	b := req.Business
	business, err := s.social.UpsertBusiness(actor, domain.Business{
		ID:       b.ID,
		OwnerID:  b.OwnerID,
		Name:     b.Name,
		Address:  b.Address,
		Location: fromAPIPoint(b.Location),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.BusinessResponse{Business: toAPIBusiness(business)}, nil
}

func (s *SocialServer) GetBusiness(ctx context.Context, req *eventhubv1.GetBusinessRequest) (*eventhubv1.BusinessResponse, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	business, err := s.social.Business(req.BusinessID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.BusinessResponse{Business: toAPIBusiness(business)}, nil
}

func (s *SocialServer) PostReview(ctx context.Context, req *eventhubv1.PostReviewRequest) (*eventhubv1.ReviewResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.SocialService_PostReview_FullMethodName, keyOptional, req, func() (*eventhubv1.ReviewResponse, error) {
		review, err := s.social.PostReview(actor, social.ReviewInput{
			BusinessID: req.BusinessID,
			OrderID:    req.OrderID,
			Rating:     req.Rating,
			Comment:    req.Comment,
		})
		if err != nil {
			return nil, toStatus(err)
		}
		return &eventhubv1.ReviewResponse{Review: toAPIReview(review)}, nil
	})
}

func (s *SocialServer) ListReviews(ctx context.Context, req *eventhubv1.ListReviewsRequest) (*eventhubv1.ListReviewsResponse, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	reviews, summary, err := s.social.Reviews(req.BusinessID, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toAPIReview(r))
	}
	return &eventhubv1.ListReviewsResponse{Reviews: out, Summary: toAPIRatingSummary(summary)}, nil
}

var _ eventhubv1.SocialServiceServer = (*SocialServer)(nil)
