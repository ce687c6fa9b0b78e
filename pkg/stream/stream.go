// Package stream delivers live vehicle telemetry over the streaming WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/looplab/fsm"

	"github.com/teslamotors/fleet-client/internal/log"
)

// DefaultURL is the production streaming endpoint.
const DefaultURL = "wss://streaming.vn.teslamotors.com/streaming/"

// ErrStreamOpen is returned by Open on a stream that is already open or already spent.
var ErrStreamOpen = errors.New("stream: already opened")

// Event is one occurrence on an open stream. At most one of Sample and Err is set; Connected and
// Disconnected bracket the lifecycle.
type Event struct {
	// Sample carries one telemetry row.
	Sample *Sample
	// Err carries a server-reported data error or the read error that ended the stream.
	Err error
	// Connected is set once, when the server acknowledges the subscription.
	Connected bool
	// Disconnected marks the last event the sink will receive.
	Disconnected bool
}

// Sink receives stream events. It is called from the stream's reader goroutine, so it must not
// block for long.
type Sink func(Event)

type Config struct {
	// URL defaults to DefaultURL.
	URL string
	// VehicleID is the streaming identifier (Vehicle.VehicleID, not Vehicle.ID).
	VehicleID int64
	// AccessToken authorizes the subscription.
	AccessToken string
	Dialer      *websocket.Dialer
	// Demo replays synthetic telemetry locally instead of dialing the server.
	Demo bool
}

const (
	stateDisconnected  = "disconnected"
	stateConnecting    = "connecting"
	stateAuthenticated = "authenticated"
	stateStreaming     = "streaming"
	stateErrored       = "errored"
)

// Stream is a single-use telemetry subscription. Open it once; after a disconnect, create a new
// Stream rather than reusing this one. Reconnect policy belongs to the application.
type Stream struct {
	config Config

	mu     sync.Mutex
	conn   *websocket.Conn
	sink   Sink
	closed bool
	done   chan struct{}
	fsm    *fsm.FSM
}

func New(config Config) *Stream {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}
	s := &Stream{config: config, done: make(chan struct{})}
	s.fsm = fsm.NewFSM(
		stateDisconnected,
		fsm.Events{
			{Name: "connect", Src: []string{stateDisconnected}, Dst: stateConnecting},
			{Name: "hello", Src: []string{stateConnecting}, Dst: stateAuthenticated},
			{Name: "data", Src: []string{stateAuthenticated, stateStreaming}, Dst: stateStreaming},
			{Name: "fail", Src: []string{stateConnecting, stateAuthenticated, stateStreaming}, Dst: stateErrored},
			{Name: "disconnect", Src: []string{stateConnecting, stateAuthenticated, stateStreaming, stateErrored}, Dst: stateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug("Stream %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return s
}

// State reports the connection's lifecycle state.
func (s *Stream) State() string {
	return s.fsm.Current()
}

// Open dials the streaming endpoint, subscribes, and starts delivering events to sink. It returns
// once the subscription is sent; telemetry arrives on the sink asynchronously. The stream does not
// reconnect: after an Event with Disconnected set, this Stream is spent.
func (s *Stream) Open(ctx context.Context, sink Sink) error {
	if sink == nil {
		return errors.New("stream: nil sink")
	}
	s.mu.Lock()
	if s.closed || s.conn != nil {
		s.mu.Unlock()
		return ErrStreamOpen
	}
	s.sink = sink
	s.mu.Unlock()

	if s.config.Demo {
		s.event(ctx, "connect")
		s.event(ctx, "hello")
		s.deliver(Event{Connected: true})
		go s.demoLoop()
		return nil
	}

	s.event(ctx, "connect")
	conn, _, err := s.config.Dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		s.event(ctx, "fail")
		return fmt.Errorf("stream: dial %s: %w", s.config.URL, err)
	}

	subscribe := Message{
		MsgType: msgSubscribe,
		Token:   s.config.AccessToken,
		Value:   subscribedFields,
		Tag:     strconv.FormatInt(s.config.VehicleID, 10),
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		s.event(ctx, "fail")
		return fmt.Errorf("stream: subscribe: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		// Close ran while the dial was in flight and already closed done. The reader must not
		// start, or it would close done a second time.
		s.mu.Unlock()
		conn.Close()
		return ErrStreamOpen
	}
	s.conn = conn
	s.mu.Unlock()
	go s.readLoop(ctx, conn)
	return nil
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(s.done)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				s.deliver(Event{Disconnected: true})
				return
			}
			s.event(ctx, "fail")
			s.deliver(Event{Err: err, Disconnected: true})
			return
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warning("Dropping unparsable stream frame: %s", err)
			continue
		}
		switch msg.MsgType {
		case msgHello:
			s.event(ctx, "hello")
			s.deliver(Event{Connected: true})
		case msgDataUpdate:
			sample := ParseSample(msg.Value)
			if sample == nil {
				log.Debug("Dropping truncated telemetry row: %q", msg.Value)
				continue
			}
			s.event(ctx, "data")
			s.deliver(Event{Sample: sample})
		case msgDataError:
			s.event(ctx, "fail")
			s.deliver(Event{Err: fmt.Errorf("stream: %s: %s", msg.ErrorType, msg.Value)})
		default:
			log.Debug("Ignoring stream frame of type %q", msg.MsgType)
		}
	}
}

// Close tears the connection down. No events are delivered after Close returns, except the final
// Disconnected notification from the reader.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
		<-s.done
	} else {
		// Demo loop, a dial still in flight, or never opened. Open's re-check keeps the reader
		// from starting once closed is set, so this is the only close of done.
		close(s.done)
	}
	s.event(context.Background(), "disconnect")
}

func (s *Stream) deliver(e Event) {
	s.mu.Lock()
	sink := s.sink
	suppressed := s.closed && !e.Disconnected
	s.mu.Unlock()
	if sink == nil || suppressed {
		return
	}
	sink(e)
}

func (s *Stream) event(ctx context.Context, name string) {
	if err := s.fsm.Event(ctx, name); err != nil {
		log.Debug("Stream state event %q ignored: %s", name, err)
	}
}

// demoLoop emits a synthetic drive at one-second intervals until the stream is closed.
func (s *Stream) demoLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	odometer := 22340.5
	soc := 50
	for i := 0; ; i++ {
		select {
		case <-s.done:
			s.deliver(Event{Disconnected: true})
			return
		case t := <-ticker.C:
			odometer += 0.016
			if i > 0 && i%120 == 0 && soc > 0 {
				soc--
			}
			s.event(context.Background(), "data")
			s.deliver(Event{Sample: &Sample{
				Timestamp:  t,
				Speed:      60,
				Odometer:   odometer,
				SOC:        soc,
				Elevation:  1800,
				Heading:    194,
				Latitude:   46.49699,
				Longitude:  9.84191,
				Power:      15,
				ShiftState: ShiftDrive,
				Range:      180,
				EstRange:   170,
			}})
		}
	}
}
