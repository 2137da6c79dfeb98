package fixchan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// WSTransport carries fix requests to a remote host over a websocket and
// pumps inbound responses back into the channel. Payloads that are not
// well-formed fix responses are logged and dropped.
type WSTransport struct {
	conn    *websocket.Conn
	channel *Channel
	writeMu sync.Mutex

	done chan struct{}
}

// DialWS connects to a fix-request endpoint and returns the transport and a
// Channel bound to it. The read pump runs until the connection drops or
// Close is called.
func DialWS(ctx context.Context, url string) (*WSTransport, *Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing fix endpoint %s: %w", url, err)
	}

	transport := &WSTransport{
		conn: conn,
		done: make(chan struct{}),
	}
	channel := NewChannel(transport)
	transport.channel = channel

	go transport.readPump()
	return transport, channel, nil
}

// Send implements Transport.
func (t *WSTransport) Send(req Request) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("writing fix request: %w", err)
	}
	return nil
}

// Close tears down the connection; pending requests settle via timeout.
func (t *WSTransport) Close() error {
	close(t.done)
	return t.conn.Close()
}

func (t *WSTransport) readPump() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
			default:
				slog.Info("Fix endpoint connection closed", "error", err.Error())
			}
			return
		}
		resp, err := DecodeResponse(data)
		if err != nil {
			slog.Debug("Ignoring non-response payload on fix channel", "error", err)
			continue
		}
		t.channel.Dispatch(*resp)
	}
}
