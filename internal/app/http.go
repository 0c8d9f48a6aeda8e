package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/auth"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/eventhub/internal/health"
	"github.com/vladislavdragonenkov/eventhub/internal/service/chat"
	grpcsvc "github.com/vladislavdragonenkov/eventhub/internal/service/grpc"
)

const (
	httpShutdownTimeout = 5 * time.Second
	wsWriteTimeout      = 10 * time.Second
	wsPongTimeout       = 60 * time.Second
	wsPingInterval      = 50 * time.Second
)

// chatAccess проверяет, что пользователь участник чата.
type chatAccess interface {
	Get(actor domain.Actor, chatID string) (domain.Chat, error)
}

// chatStream отдаёт новые сообщения чата по websocket.
type chatStream struct {
	authn    *auth.Authenticator
	chats    chatAccess
	hub      *chat.Hub
	upgrader websocket.Upgrader
	logger   *log.Entry
}

func newChatStream(authn *auth.Authenticator, chats chatAccess, hub *chat.Hub, logger *log.Entry) *chatStream {
	return &chatStream{
		authn: authn,
		chats: chats,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// identify берёт JWT из ?token= или заголовка Authorization.
func (s *chatStream) identify(r *http.Request) (auth.Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var err error
		if token, err = auth.BearerToken(r.Header.Get("Authorization")); err != nil {
			return auth.Identity{}, err
		}
	}
	return s.authn.Parse(token)
}

func (s *chatStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chat_id"]
	identity, err := s.identify(r)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	if _, err := s.chats.Get(identity.Actor(), chatID); err != nil {
		switch {
		case errors.Is(err, domain.ErrChatNotFound):
			http.Error(w, "chat not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrNotChatParticipant):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			s.logger.WithError(err).WithField("chat_id", chatID).Error("chat lookup failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}
	sub := s.hub.Subscribe(chatID)
	logger := s.logger.WithFields(log.Fields{"chat_id": chatID, "user_id": identity.UserID})
	logger.Debug("chat stream opened")

	done := make(chan struct{})
	go s.readLoop(conn, done)
	s.writeLoop(r.Context(), conn, sub, done, logger)

	sub.Close()
	_ = conn.Close()
	logger.Debug("chat stream closed")
}

// readLoop читает управляющие кадры до разрыва соединения.
func (s *chatStream) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop завершается при остановке сервера: контекст запроса наследует BaseContext.
func (s *chatStream) writeLoop(ctx context.Context, conn *websocket.Conn, sub *chat.Subscription, done <-chan struct{}, logger *log.Entry) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case msg, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				// Hub отключил медленного клиента.
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"))
				return
			}
			if err := conn.WriteJSON(grpcsvc.ToAPIMessage(msg)); err != nil {
				logger.WithError(err).Debug("chat stream write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// newHTTPRouter собирает служебные эндпоинты и websocket чата.
func newHTTPRouter(healthHandler *healthcheck.Handler, stream http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/healthz", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/livez", healthcheck.LivenessHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthHandler.ReadinessHandler).Methods(http.MethodGet)
	if stream != nil {
		router.Handle("/v1/chats/{chat_id}/stream", stream).Methods(http.MethodGet)
	}
	return router
}

// serveHTTP обслуживает lis до отмены ctx, затем аккуратно останавливает сервер.
func serveHTTP(ctx context.Context, lis net.Listener, handler http.Handler, logger *log.Entry) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", lis.Addr().String()).Info("http server listening (/metrics, /healthz, /livez, /readyz)")
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownHTTP(srv, logger)
		return nil
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
