package web

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/panyam/vizfix/fixchan"
	"github.com/panyam/vizfix/fixer"
	"github.com/panyam/vizfix/oracle"
	"github.com/panyam/vizfix/raster"
	"github.com/panyam/vizfix/render"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// session ties one websocket client to its own render pipeline. The socket
// carries both the editing protocol and, when the client hosts the
// assistant, the fix request/response protocol.
type session struct {
	id       string
	conn     *websocket.Conn
	writeMu  sync.Mutex
	channel  *fixchan.Channel
	renderer *render.Renderer
	config   Config
}

// Send implements fixchan.Transport: fix requests go to the client over the
// session socket.
func (s *session) Send(req fixchan.Request) error {
	return s.sendJSON(req)
}

func (s *session) sendJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		slog.Warn("Failed to write websocket JSON", "session_id", s.id, "error", err)
		return err
	}
	return nil
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade the websocket", "error", err)
		return
	}
	defer conn.Close()

	sess := &session{
		id:     uuid.New().String(),
		conn:   conn,
		config: s.Config,
	}
	slog.Info("Session started", "session_id", sess.id)

	if s.Assistant != nil {
		_, sess.channel = fixchan.NewLoopback(s.Assistant)
	} else {
		sess.channel = fixchan.NewChannel(sess)
	}
	sess.channel.Timeout = s.Config.FixTimeout()
	if s.Config.MaxFixAttempts > 0 {
		sess.channel.MaxAttempts = s.Config.MaxFixAttempts
	}

	fix := &fixer.Fixer{
		Validator:   oracle.NewValidator(s.Engine),
		Requester:   sess.channel,
		MaxAttempts: s.Config.MaxFixAttempts,
	}
	sess.renderer = render.NewRenderer(s.Engine, fix, render.WithDebounce(s.Config.Debounce()))
	defer sess.renderer.Close()

	sess.renderer.Subscribe(func(state render.ViewState) {
		sess.sendJSON(stateMsg(state))
	})
	// Let the client know where it is starting from.
	sess.sendJSON(stateMsg(sess.renderer.State()))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("Session closed", "session_id", sess.id, "error", err.Error())
			return
		}
		msg, err := decodeClientMessage(data)
		if err != nil {
			slog.Debug("Ignoring malformed client message", "session_id", sess.id, "error", err)
			continue
		}
		switch m := msg.(type) {
		case *SourceChangedMsg:
			sess.renderer.SetSource(m.Text)
		case *RetryMsg:
			sess.renderer.Retry()
		case *ExportMsg:
			sess.handleExport(m)
		case *fixchan.Response:
			sess.channel.Dispatch(*m)
		}
	}
}

func (s *session) handleExport(msg *ExportMsg) {
	state := s.renderer.State()
	if state.Phase != render.PhaseRendered || state.SVG == "" {
		slog.Warn("Export requested with nothing rendered", "session_id", s.id, "phase", state.Phase.String())
		return
	}

	opts := raster.Options{Width: s.config.ExportWidth}
	if msg.Background != "" {
		bg, err := raster.ParseHexColor(msg.Background)
		if err != nil {
			slog.Warn("Ignoring bad export background", "session_id", s.id, "error", err)
		} else {
			opts.Background = bg
		}
	}

	data, err := raster.Export(state.SVG, opts)
	if err != nil {
		slog.Error("Export failed", "session_id", s.id, "error", err)
		return
	}
	s.sendJSON(DisplayImageMsg{
		Type:      typeDisplayImage,
		PNGBase64: base64.StdEncoding.EncodeToString(data),
	})
}
