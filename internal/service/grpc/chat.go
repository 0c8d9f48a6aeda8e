package grpcsvc

import (
	"context"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/service/chat"
)

// ChatServer реализует eventhub.v1.ChatService.
type ChatServer struct {
	chat *chat.Service
	idem *Idempotency
}

// NewChatServer создаёт gRPC-адаптер сервиса чатов.
func NewChatServer(svc *chat.Service, idem *Idempotency) *ChatServer {
	return &ChatServer{chat: svc, idem: idem}
}

func (s *ChatServer) OpenDirectChat(ctx context.Context, req *eventhubv1.OpenDirectChatRequest) (*eventhubv1.ChatResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return chatResponse(s.chat.OpenDirect(actor, req.UserID))
}

func (s *ChatServer) CreateGroupChat(ctx context.Context, req *eventhubv1.CreateGroupChatRequest) (*eventhubv1.ChatResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.ChatService_CreateGroupChat_FullMethodName, keyOptional, req, func() (*eventhubv1.ChatResponse, error) {
		return chatResponse(s.chat.CreateGroup(actor, req.Title, req.Participants))
	})
}

func (s *ChatServer) JoinEventChat(ctx context.Context, req *eventhubv1.JoinEventChatRequest) (*eventhubv1.ChatResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return chatResponse(s.chat.JoinEventChat(actor, req.EventID))
}

func (s *ChatServer) GetChat(ctx context.Context, req *eventhubv1.ChatIDRequest) (*eventhubv1.ChatResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return chatResponse(s.chat.Get(actor, req.ChatID))
}

func (s *ChatServer) ListChats(ctx context.Context, req *eventhubv1.ListChatsRequest) (*eventhubv1.ListChatsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.chat.Chats(actor, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.Chat, 0, len(list))
	for _, c := range list {
		out = append(out, toAPIChat(c))
	}
	return &eventhubv1.ListChatsResponse{Chats: out}, nil
}

func (s *ChatServer) SendMessage(ctx context.Context, req *eventhubv1.SendMessageRequest) (*eventhubv1.SendMessageResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.ChatService_SendMessage_FullMethodName, keyOptional, req, func() (*eventhubv1.SendMessageResponse, error) {
		msg, err := s.chat.Send(actor, req.ChatID, req.Body)
		if err != nil {
			return nil, toStatus(err)
		}
		return &eventhubv1.SendMessageResponse{Message: ToAPIMessage(msg)}, nil
	})
}

func (s *ChatServer) ListMessages(ctx context.Context, req *eventhubv1.ListMessagesRequest) (*eventhubv1.ListMessagesResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.chat.Messages(actor, req.ChatID, req.AfterSeq, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.ChatMessage, 0, len(list))
	for _, m := range list {
		out = append(out, ToAPIMessage(m))
	}
	return &eventhubv1.ListMessagesResponse{Messages: out}, nil
}

func chatResponse(c domain.Chat, err error) (*eventhubv1.ChatResponse, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.ChatResponse{Chat: toAPIChat(c)}, nil
}

var _ eventhubv1.ChatServiceServer = (*ChatServer)(nil)
