package output

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mrsingh-rishi/whisper-llama/events"
)

// JSONWriter is satisfied by *websocket.Conn.
type JSONWriter interface {
	WriteJSON(v interface{}) error
}

// SocketOutput writes bus events to one WebSocket client. It is the only
// writer on the connection.
type SocketOutput struct {
	ctx    context.Context
	cancel context.CancelFunc
	Events <-chan events.Envelope
	ws     JSONWriter
	log    *slog.Logger

	started atomic.Bool
	done    chan struct{}
}

func NewSocketOutput(ws JSONWriter, evs <-chan events.Envelope, log *slog.Logger) (*SocketOutput, error) {
	if ws == nil {
		return nil, fmt.Errorf("websocket connection is required")
	}
	if evs == nil {
		return nil, fmt.Errorf("event channel is required")
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SocketOutput{
		ctx:    ctx,
		cancel: cancel,
		Events: evs,
		ws:     ws,
		log:    log,
		done:   make(chan struct{}),
	}, nil
}

// Send writes one envelope immediately.
func (o *SocketOutput) Send(env events.Envelope) error {
	return o.ws.WriteJSON(env)
}

func (o *SocketOutput) Start() {
	if !o.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(o.done)
		for {
			select {
			case <-o.ctx.Done():
				return
			case env, ok := <-o.Events:
				if !ok || o.ctx.Err() != nil {
					return
				}
				if err := o.Send(env); err != nil {
					o.log.Warn("socket write failed", slog.String("event_type", string(env.Type)), slog.Any("error", err))
					return
				}
			}
		}
	}()
}

// Done is closed once the writer loop exits.
func (o *SocketOutput) Done() <-chan struct{} {
	return o.done
}

// Stop ends the writer loop and waits for it, so the connection can be
// released once Stop returns.
func (o *SocketOutput) Stop() {
	o.cancel()
	if o.started.Load() {
		<-o.done
	}
}
