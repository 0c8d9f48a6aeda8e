package eventhubv1

import (
	"context"

	"google.golang.org/grpc"
)

type OpenDirectChatRequest struct {
	UserID string `json:"user_id"`
}

type CreateGroupChatRequest struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
}

type JoinEventChatRequest struct {
	EventID string `json:"event_id"`
}

type ChatIDRequest struct {
	ChatID string `json:"chat_id"`
}

type ChatResponse struct {
	Chat Chat `json:"chat"`
}

type ListChatsRequest struct {
	Limit int32 `json:"limit,omitempty"`
}

type ListChatsResponse struct {
	Chats []Chat `json:"chats"`
}

type SendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Body   string `json:"body"`
}

type SendMessageResponse struct {
	Message ChatMessage `json:"message"`
}

type ListMessagesRequest struct {
	ChatID   string `json:"chat_id"`
	AfterSeq int64  `json:"after_seq,omitempty"`
	Limit    int32  `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatServiceName задаёт полное имя сервиса чатов.
const ChatServiceName = "eventhub.v1.ChatService"

const (
	ChatService_OpenDirectChat_FullMethodName  = "/eventhub.v1.ChatService/OpenDirectChat"
	ChatService_CreateGroupChat_FullMethodName = "/eventhub.v1.ChatService/CreateGroupChat"
	ChatService_JoinEventChat_FullMethodName   = "/eventhub.v1.ChatService/JoinEventChat"
	ChatService_GetChat_FullMethodName         = "/eventhub.v1.ChatService/GetChat"
	ChatService_ListChats_FullMethodName       = "/eventhub.v1.ChatService/ListChats"
	ChatService_SendMessage_FullMethodName     = "/eventhub.v1.ChatService/SendMessage"
	ChatService_ListMessages_FullMethodName    = "/eventhub.v1.ChatService/ListMessages"
)

// ChatServiceServer описывает серверную часть сервиса чатов.
type ChatServiceServer interface {
	OpenDirectChat(context.Context, *OpenDirectChatRequest) (*ChatResponse, error)
	CreateGroupChat(context.Context, *CreateGroupChatRequest) (*ChatResponse, error)
	JoinEventChat(context.Context, *JoinEventChatRequest) (*ChatResponse, error)
	GetChat(context.Context, *ChatIDRequest) (*ChatResponse, error)
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
}

var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ChatServiceName, "OpenDirectChat", ChatServiceServer.OpenDirectChat),
		unary(ChatServiceName, "CreateGroupChat", ChatServiceServer.CreateGroupChat),
		unary(ChatServiceName, "JoinEventChat", ChatServiceServer.JoinEventChat),
		unary(ChatServiceName, "GetChat", ChatServiceServer.GetChat),
		unary(ChatServiceName, "ListChats", ChatServiceServer.ListChats),
		unary(ChatServiceName, "SendMessage", ChatServiceServer.SendMessage),
		unary(ChatServiceName, "ListMessages", ChatServiceServer.ListMessages),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventhub/v1/chat",
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

type ChatServiceClient interface {
	OpenDirectChat(ctx context.Context, in *OpenDirectChatRequest, opts ...grpc.CallOption) (*ChatResponse, error)
	CreateGroupChat(ctx context.Context, in *CreateGroupChatRequest, opts ...grpc.CallOption) (*ChatResponse, error)
	JoinEventChat(ctx context.Context, in *JoinEventChatRequest, opts ...grpc.CallOption) (*ChatResponse, error)
	GetChat(ctx context.Context, in *ChatIDRequest, opts ...grpc.CallOption) (*ChatResponse, error)
	ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc: cc}
}

func (c *chatServiceClient) OpenDirectChat(ctx context.Context, in *OpenDirectChatRequest, opts ...grpc.CallOption) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c.cc, ChatService_OpenDirectChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) CreateGroupChat(ctx context.Context, in *CreateGroupChatRequest, opts ...grpc.CallOption) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c.cc, ChatService_CreateGroupChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) JoinEventChat(ctx context.Context, in *JoinEventChatRequest, opts ...grpc.CallOption) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c.cc, ChatService_JoinEventChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) GetChat(ctx context.Context, in *ChatIDRequest, opts ...grpc.CallOption) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c.cc, ChatService_GetChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error) {
	return invoke[ListChatsResponse](ctx, c.cc, ChatService_ListChats_FullMethodName, in, opts)
}

func (c *chatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, ChatService_SendMessage_FullMethodName, in, opts)
}

func (c *chatServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, ChatService_ListMessages_FullMethodName, in, opts)
}
