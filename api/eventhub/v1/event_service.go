package eventhubv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

type EventInput struct {
	BusinessID  string    `json:"business_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Address     string    `json:"address,omitempty"`
	Location    GeoPoint  `json:"location"`
	Capacity    int32     `json:"capacity"`
	PriceMinor  int64     `json:"price_minor"`
	Currency    string    `json:"currency,omitempty"`
}

type CreateEventRequest struct {
	Event EventInput `json:"event"`
}

type UpdateEventRequest struct {
	EventID string     `json:"event_id"`
	Event   EventInput `json:"event"`
}

type EventIDRequest struct {
	EventID string `json:"event_id"`
}

type CancelEventRequest struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason,omitempty"`
}

type EventResponse struct {
	Event Event `json:"event"`
}

type ListEventsRequest struct {
	Category    string     `json:"category,omitempty"`
	OrganizerID string     `json:"organizer_id,omitempty"`
	Query       string     `json:"query,omitempty"`
	Statuses    []string   `json:"statuses,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	Near        *GeoPoint  `json:"near,omitempty"`
	RadiusKm    float64    `json:"radius_km,omitempty"`
	Limit       int32      `json:"limit,omitempty"`
	Offset      int32      `json:"offset,omitempty"`
}

type ListEventsResponse struct {
	Events []Event `json:"events"`
}

type RegistrationResponse struct {
	Registration Registration `json:"registration"`
}

type ListAttendeesResponse struct {
	Registrations []Registration `json:"registrations"`
}

// EventServiceName задаёт полное имя сервиса мероприятий.
const EventServiceName = "eventhub.v1.EventService"

const (
	EventService_CreateEvent_FullMethodName         = "/eventhub.v1.EventService/CreateEvent"
	EventService_UpdateEvent_FullMethodName         = "/eventhub.v1.EventService/UpdateEvent"
	EventService_PublishEvent_FullMethodName        = "/eventhub.v1.EventService/PublishEvent"
	EventService_CancelEvent_FullMethodName         = "/eventhub.v1.EventService/CancelEvent"
	EventService_GetEvent_FullMethodName            = "/eventhub.v1.EventService/GetEvent"
	EventService_ListEvents_FullMethodName          = "/eventhub.v1.EventService/ListEvents"
	EventService_RegisterForEvent_FullMethodName    = "/eventhub.v1.EventService/RegisterForEvent"
	EventService_UnregisterFromEvent_FullMethodName = "/eventhub.v1.EventService/UnregisterFromEvent"
	EventService_ListAttendees_FullMethodName       = "/eventhub.v1.EventService/ListAttendees"
)

// EventServiceServer описывает серверную часть сервиса мероприятий.
type EventServiceServer interface {
	CreateEvent(context.Context, *CreateEventRequest) (*EventResponse, error)
	UpdateEvent(context.Context, *UpdateEventRequest) (*EventResponse, error)
	PublishEvent(context.Context, *EventIDRequest) (*EventResponse, error)
	CancelEvent(context.Context, *CancelEventRequest) (*EventResponse, error)
	GetEvent(context.Context, *EventIDRequest) (*EventResponse, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	RegisterForEvent(context.Context, *EventIDRequest) (*RegistrationResponse, error)
	UnregisterFromEvent(context.Context, *EventIDRequest) (*RegistrationResponse, error)
	ListAttendees(context.Context, *EventIDRequest) (*ListAttendeesResponse, error)
}

var EventService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: EventServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(EventServiceName, "CreateEvent", EventServiceServer.CreateEvent),
		unary(EventServiceName, "UpdateEvent", EventServiceServer.UpdateEvent),
		unary(EventServiceName, "PublishEvent", EventServiceServer.PublishEvent),
		unary(EventServiceName, "CancelEvent", EventServiceServer.CancelEvent),
		unary(EventServiceName, "GetEvent", EventServiceServer.GetEvent),
		unary(EventServiceName, "ListEvents", EventServiceServer.ListEvents),
		unary(EventServiceName, "RegisterForEvent", EventServiceServer.RegisterForEvent),
		unary(EventServiceName, "UnregisterFromEvent", EventServiceServer.UnregisterFromEvent),
		unary(EventServiceName, "ListAttendees", EventServiceServer.ListAttendees),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventhub/v1/events",
}

func RegisterEventServiceServer(s grpc.ServiceRegistrar, srv EventServiceServer) {
	s.RegisterService(&EventService_ServiceDesc, srv)
}

type EventServiceClient interface {
	CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*EventResponse, error)
	UpdateEvent(ctx context.Context, in *UpdateEventRequest, opts ...grpc.CallOption) (*EventResponse, error)
	PublishEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*EventResponse, error)
	CancelEvent(ctx context.Context, in *CancelEventRequest, opts ...grpc.CallOption) (*EventResponse, error)
	GetEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*EventResponse, error)
	ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error)
	RegisterForEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*RegistrationResponse, error)
	UnregisterFromEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*RegistrationResponse, error)
	ListAttendees(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*ListAttendeesResponse, error)
}

type eventServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEventServiceClient(cc grpc.ClientConnInterface) EventServiceClient {
	return &eventServiceClient{cc: cc}
}

func (c *eventServiceClient) CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.cc, EventService_CreateEvent_FullMethodName, in, opts)
}

func (c *eventServiceClient) UpdateEvent(ctx context.Context, in *UpdateEventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.cc, EventService_UpdateEvent_FullMethodName, in, opts)
}

func (c *eventServiceClient) PublishEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.cc, EventService_PublishEvent_FullMethodName, in, opts)
}

func (c *eventServiceClient) CancelEvent(ctx context.Context, in *CancelEventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.cc, EventService_CancelEvent_FullMethodName, in, opts)
}

func (c *eventServiceClient) GetEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.cc, EventService_GetEvent_FullMethodName, in, opts)
}

func (c *eventServiceClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, EventService_ListEvents_FullMethodName, in, opts)
}

func (c *eventServiceClient) RegisterForEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*RegistrationResponse, error) {
	return invoke[RegistrationResponse](ctx, c.cc, EventService_RegisterForEvent_FullMethodName, in, opts)
}

func (c *eventServiceClient) UnregisterFromEvent(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*RegistrationResponse, error) {
	return invoke[RegistrationResponse](ctx, c.cc, EventService_UnregisterFromEvent_FullMethodName, in, opts)
}

func (c *eventServiceClient) ListAttendees(ctx context.Context, in *EventIDRequest, opts ...grpc.CallOption) (*ListAttendeesResponse, error) {
	return invoke[ListAttendeesResponse](ctx, c.cc, EventService_ListAttendees_FullMethodName, in, opts)
}
