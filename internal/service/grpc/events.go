package grpcsvc

import (
	"context"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/service/events"
)

// EventServer реализует eventhub.v1.EventService.
type EventServer struct {
	events *events.Service
	idem   *Idempotency
}

// NewEventServer создаёт gRPC-адаптер сервиса мероприятий.
func NewEventServer(svc *events.Service, idem *Idempotency) *EventServer {
	return &EventServer{events: svc, idem: idem}
}

func (s *EventServer) CreateEvent(ctx context.Context, req *eventhubv1.CreateEventRequest) (*eventhubv1.EventResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.EventService_CreateEvent_FullMethodName, keyOptional, req, func() (*eventhubv1.EventResponse, error) {
		event, err := s.events.Create(actor, fromAPIEventInput(req.Event))
		if err != nil {
			return nil, toStatus(err)
		}
		return &eventhubv1.EventResponse{Event: toAPIEvent(event, nil)}, nil
	})
}

func (s *EventServer) UpdateEvent(ctx context.Context, req *eventhubv1.UpdateEventRequest) (*eventhubv1.EventResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	event, err := s.events.Update(actor, req.EventID, fromAPIEventInput(req.Event))
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.EventResponse{Event: toAPIEvent(event, nil)}, nil
}

func (s *EventServer) PublishEvent(ctx context.Context, req *eventhubv1.EventIDRequest) (*eventhubv1.EventResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	event, err := s.events.Publish(actor, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.EventResponse{Event: toAPIEvent(event, nil)}, nil
}

func (s *EventServer) CancelEvent(ctx context.Context, req *eventhubv1.CancelEventRequest) (*eventhubv1.EventResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	event, err := s.events.Cancel(actor, req.EventID, req.Reason)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.EventResponse{Event: toAPIEvent(event, nil)}, nil
}

func (s *EventServer) GetEvent(ctx context.Context, req *eventhubv1.EventIDRequest) (*eventhubv1.EventResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	event, err := s.events.Get(actor, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.EventResponse{Event: toAPIEvent(event, nil)}, nil
}

func (s *EventServer) ListEvents(ctx context.Context, req *eventhubv1.ListEventsRequest) (*eventhubv1.ListEventsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	filter := fromAPIEventFilter(req)
	list, err := s.events.List(actor, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.Event, 0, len(list))
	for _, event := range list {
		out = append(out, toAPIEvent(event, filter.Near))
	}
	return &eventhubv1.ListEventsResponse{Events: out}, nil
}

func (s *EventServer) RegisterForEvent(ctx context.Context, req *eventhubv1.EventIDRequest) (*eventhubv1.RegistrationResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := s.events.Register(actor, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.RegistrationResponse{Registration: toAPIRegistration(reg)}, nil
}

func (s *EventServer) UnregisterFromEvent(ctx context.Context, req *eventhubv1.EventIDRequest) (*eventhubv1.RegistrationResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := s.events.Unregister(actor, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.RegistrationResponse{Registration: toAPIRegistration(reg)}, nil
}

func (s *EventServer) ListAttendees(ctx context.Context, req *eventhubv1.EventIDRequest) (*eventhubv1.ListAttendeesResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	regs, err := s.events.Attendees(actor, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.Registration, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toAPIRegistration(reg))
	}
	return &eventhubv1.ListAttendeesResponse{Registrations: out}, nil
}

var _ eventhubv1.EventServiceServer = (*EventServer)(nil)
