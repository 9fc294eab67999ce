package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"order-gateway-go/metrics"
	"order-gateway-go/venue"
)

// ExecutionHandler receives order updates pushed by the venue.
type ExecutionHandler interface {
	ApplyVenueOrder(vo venue.Order) bool
}

// ExecutionStream consumes the venue's execution-report websocket and
// forwards updates to the handler. Reconciliation remains the source of
// truth; the stream only reduces latency between venue events and local
// state.
type ExecutionStream struct {
	URL          string
	APIKey       string
	Dialer       *websocket.Dialer
	ReadDeadline time.Duration
	Backoff      time.Duration

	log *zap.Logger
}

func NewExecutionStream(wsURL, apiKey string, log *zap.Logger) *ExecutionStream {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecutionStream{
		URL:          wsURL,
		APIKey:       apiKey,
		Dialer:       websocket.DefaultDialer,
		ReadDeadline: 30 * time.Second,
		Backoff:      2 * time.Second,
		log:          log,
	}
}

// Run connects and reads until ctx is done, reconnecting with a fixed
// backoff on any failure.
func (s *ExecutionStream) Run(ctx context.Context, handler ExecutionHandler) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.readLoop(ctx, handler); err != nil {
			s.log.Warn("execution stream disconnected", zap.Error(err))
		}
		metrics.StreamReconnects.Inc()
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Backoff):
		}
	}
}

func (s *ExecutionStream) readLoop(ctx context.Context, handler ExecutionHandler) error {
	header := http.Header{}
	if s.APIKey != "" {
		header.Set("X-API-KEY", s.APIKey)
	}
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage on ctx cancellation; done keeps the watcher from
	// outliving this connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.ReadDeadline))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		vo, err := ParseExecutionReport(message)
		if err != nil {
			s.log.Debug("skipping unparseable stream message", zap.Error(err))
			continue
		}
		handler.ApplyVenueOrder(vo)
	}
}
