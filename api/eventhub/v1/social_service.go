package eventhubv1

import (
	"context"

	"google.golang.org/grpc"
)

type FollowRequest struct {
	UserID string `json:"user_id"`
}

type FollowResponse struct {
	// Changed равно false, если связь уже была в нужном состоянии.
	Changed bool `json:"changed"`
}

type ListFollowsRequest struct {
	UserID string `json:"user_id"`
	Limit  int32  `json:"limit,omitempty"`
	Offset int32  `json:"offset,omitempty"`
}

type ListFollowsResponse struct {
	UserIDs []string `json:"user_ids"`
}

type GetFollowCountsRequest struct {
	UserID string `json:"user_id"`
}

type FollowCountsResponse struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

type UpsertBusinessRequest struct {
	Business Business `json:"business"`
}

type GetBusinessRequest struct {
	BusinessID string `json:"business_id"`
}

type BusinessResponse struct {
	Business Business `json:"business"`
}

type PostReviewRequest struct {
	BusinessID string `json:"business_id"`
	OrderID    string `json:"order_id,omitempty"`
	Rating     int32  `json:"rating"`
	Comment    string `json:"comment,omitempty"`
}

type ReviewResponse struct {
	Review Review `json:"review"`
}

type ListReviewsRequest struct {
	BusinessID string `json:"business_id"`
	Limit      int32  `json:"limit,omitempty"`
}

type ListReviewsResponse struct {
	Reviews []Review      `json:"reviews"`
	Summary RatingSummary `json:"summary"`
}

// SocialServiceName задаёт полное имя сервиса социального графа и отзывов.
const SocialServiceName = "eventhub.v1.SocialService"

const (
	SocialService_Follow_FullMethodName          = "/eventhub.v1.SocialService/Follow"
	SocialService_Unfollow_FullMethodName        = "/eventhub.v1.SocialService/Unfollow"
	SocialService_ListFollowers_FullMethodName   = "/eventhub.v1.SocialService/ListFollowers"
	SocialService_ListFollowing_FullMethodName   = "/eventhub.v1.SocialService/ListFollowing"
	SocialService_GetFollowCounts_FullMethodName = "/eventhub.v1.SocialService/GetFollowCounts"
	SocialService_UpsertBusiness_FullMethodName  = "/eventhub.v1.SocialService/UpsertBusiness"
	SocialService_GetBusiness_FullMethodName     = "/eventhub.v1.SocialService/GetBusiness"
	SocialService_PostReview_FullMethodName      = "/eventhub.v1.SocialService/PostReview"
	SocialService_ListReviews_FullMethodName     = "/eventhub.v1.SocialService/ListReviews"
)

// SocialServiceServer описывает серверную часть сервиса социального графа и отзывов.
type SocialServiceServer interface {
	Follow(context.Context, *FollowRequest) (*FollowResponse, error)
	Unfollow(context.Context, *FollowRequest) (*FollowResponse, error)
	ListFollowers(context.Context, *ListFollowsRequest) (*ListFollowsResponse, error)
	ListFollowing(context.Context, *ListFollowsRequest) (*ListFollowsResponse, error)
	GetFollowCounts(context.Context, *GetFollowCountsRequest) (*FollowCountsResponse, error)
	UpsertBusiness(context.Context, *UpsertBusinessRequest) (*BusinessResponse, error)
	GetBusiness(context.Context, *GetBusinessRequest) (*BusinessResponse, error)
	PostReview(context.Context, *PostReviewRequest) (*ReviewResponse, error)
	ListReviews(context.Context, *ListReviewsRequest) (*ListReviewsResponse, error)
}

var SocialService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: SocialServiceName,
	HandlerType: (*SocialServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SocialServiceName, "Follow", SocialServiceServer.Follow),
		unary(SocialServiceName, "Unfollow", SocialServiceServer.Unfollow),
		unary(SocialServiceName, "ListFollowers", SocialServiceServer.ListFollowers),
		unary(SocialServiceName, "ListFollowing", SocialServiceServer.ListFollowing),
		unary(SocialServiceName, "GetFollowCounts", SocialServiceServer.GetFollowCounts),
		unary(SocialServiceName, "UpsertBusiness", SocialServiceServer.UpsertBusiness),
		unary(SocialServiceName, "GetBusiness", SocialServiceServer.GetBusiness),
		unary(SocialServiceName, "PostReview", SocialServiceServer.PostReview),
		unary(SocialServiceName, "ListReviews", SocialServiceServer.ListReviews),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventhub/v1/social",
}

func RegisterSocialServiceServer(s grpc.ServiceRegistrar, srv SocialServiceServer) {
	s.RegisterService(&SocialService_ServiceDesc, srv)
}

type SocialServiceClient interface {
	Follow(ctx context.Context, in *FollowRequest, opts ...grpc.CallOption) (*FollowResponse, error)
	Unfollow(ctx context.Context, in *FollowRequest, opts ...grpc.CallOption) (*FollowResponse, error)
	ListFollowers(ctx context.Context, in *ListFollowsRequest, opts ...grpc.CallOption) (*ListFollowsResponse, error)
	ListFollowing(ctx context.Context, in *ListFollowsRequest, opts ...grpc.CallOption) (*ListFollowsResponse, error)
	GetFollowCounts(ctx context.Context, in *GetFollowCountsRequest, opts ...grpc.CallOption) (*FollowCountsResponse, error)
	UpsertBusiness(ctx context.Context, in *UpsertBusinessRequest, opts ...grpc.CallOption) (*BusinessResponse, error)
	GetBusiness(ctx context.Context, in *GetBusinessRequest, opts ...grpc.CallOption) (*BusinessResponse, error)
	PostReview(ctx context.Context, in *PostReviewRequest, opts ...grpc.CallOption) (*ReviewResponse, error)
	ListReviews(ctx context.Context, in *ListReviewsRequest, opts ...grpc.CallOption) (*ListReviewsResponse, error)
}

type socialServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSocialServiceClient(cc grpc.ClientConnInterface) SocialServiceClient {
	return &socialServiceClient{cc: cc}
}

func (c *socialServiceClient) Follow(ctx context.Context, in *FollowRequest, opts ...grpc.CallOption) (*FollowResponse, error) {
	return invoke[FollowResponse](ctx, c.cc, SocialService_Follow_FullMethodName, in, opts)
}

func (c *socialServiceClient) Unfollow(ctx context.Context, in *FollowRequest, opts ...grpc.CallOption) (*FollowResponse, error) {
	return invoke[FollowResponse](ctx, c.cc, SocialService_Unfollow_FullMethodName, in, opts)
}

func (c *socialServiceClient) ListFollowers(ctx context.Context, in *ListFollowsRequest, opts ...grpc.CallOption) (*ListFollowsResponse, error) {
	return invoke[ListFollowsResponse](ctx, c.cc, SocialService_ListFollowers_FullMethodName, in, opts)
}

func (c *socialServiceClient) ListFollowing(ctx context.Context, in *ListFollowsRequest, opts ...grpc.CallOption) (*ListFollowsResponse, error) {
	return invoke[ListFollowsResponse](ctx, c.cc, SocialService_ListFollowing_FullMethodName, in, opts)
}

func (c *socialServiceClient) GetFollowCounts(ctx context.Context, in *GetFollowCountsRequest, opts ...grpc.CallOption) (*FollowCountsResponse, error) {
	return invoke[FollowCountsResponse](ctx, c.cc, SocialService_GetFollowCounts_FullMethodName, in, opts)
}

func (c *socialServiceClient) UpsertBusiness(ctx context.Context, in *UpsertBusinessRequest, opts ...grpc.CallOption) (*BusinessResponse, error) {
	return invoke[BusinessResponse](ctx, c.cc, SocialService_UpsertBusiness_FullMethodName, in, opts)
}

func (c *socialServiceClient) GetBusiness(ctx context.Context, in *GetBusinessRequest, opts ...grpc.CallOption) (*BusinessResponse, error) {
	return invoke[BusinessResponse](ctx, c.cc, SocialService_GetBusiness_FullMethodName, in, opts)
}

func (c *socialServiceClient) PostReview(ctx context.Context, in *PostReviewRequest, opts ...grpc.CallOption) (*ReviewResponse, error) {
	return invoke[ReviewResponse](ctx, c.cc, SocialService_PostReview_FullMethodName, in, opts)
}

func (c *socialServiceClient) ListReviews(ctx context.Context, in *ListReviewsRequest, opts ...grpc.CallOption) (*ListReviewsResponse, error) {
	return invoke[ListReviewsResponse](ctx, c.cc, SocialService_ListReviews_FullMethodName, in, opts)
}
