// Package control exposes the runtime operations over a websocket, so
// the wall can be driven from a phone or a cron job instead of the
// attached keyboard.
package control

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seccouser/hdmi-in-display/internal/capture"
	"github.com/seccouser/hdmi-in-display/internal/logging"
	"github.com/seccouser/hdmi-in-display/internal/render"
)

var log = logging.DefaultLogger.WithTag("control")

// Server accepts websocket sessions on /ws and forwards operations to
// the display. One goroutine per session; sessions share nothing.
type Server struct {
	addr string
	sup  *capture.Supervisor
	ops  chan<- render.Op

	upgrader websocket.Upgrader
}

func NewServer(addr string, sup *capture.Supervisor, ops chan<- render.Op) *Server {
	return &Server{
		addr: addr,
		sup:  sup,
		ops:  ops,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The wall sits on a closed network; the browser origin check
			// would only lock out the diagnostic page.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes served by this server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe blocks until ctx is cancelled, then drains with a short
// shutdown window.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() {
		log.Info("control surface on %s", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// request is one client message.
type request struct {
	Op string `json:"op"`
}

// response echoes the op with the outcome. Status carries the capture
// snapshot for op "status" only.
type response struct {
	Session string  `json:"session"`
	Op      string  `json:"op"`
	OK      bool    `json:"ok"`
	Error   string  `json:"error,omitempty"`
	Status  *status `json:"status,omitempty"`
}

type status struct {
	State        string `json:"state"`
	Errors       int    `json:"errors"`
	Degraded     bool   `json:"degraded"`
	LastGood     string `json:"last_good,omitempty"`
	LastRecovery string `json:"last_recovery,omitempty"`
	Format       string `json:"format"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	session := uuid.New().String()
	log.Info("session %s from %s", session, r.RemoteAddr)
	defer log.Info("session %s closed", session)

	for {
		var req request
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("session %s: %v", session, err)
			}
			return
		}

		resp := s.dispatch(req)
		resp.Session = session
		if err := ws.WriteJSON(&resp); err != nil {
			log.Warn("session %s write: %v", session, err)
			return
		}
	}
}

func (s *Server) dispatch(req request) response {
	resp := response{Op: req.Op}

	if req.Op == "status" {
		resp.OK = true
		resp.Status = s.snapshotStatus()
		return resp
	}

	op, ok := opByName(req.Op)
	if !ok {
		resp.Error = "unknown op"
		return resp
	}

	select {
	case s.ops <- op:
		resp.OK = true
	default:
		// The display drains once per frame; a full queue means it is
		// wedged or flooded, and blocking here would wedge the session too.
		resp.Error = "display not accepting operations"
	}
	return resp
}

func (s *Server) snapshotStatus() *status {
	st := s.sup.Status()
	out := &status{
		State:    st.State.String(),
		Errors:   st.Errors,
		Degraded: st.Degraded,
		Format:   st.Format.String(),
	}
	if st.LastGood.Unix() > 0 {
		out.LastGood = st.LastGood.Format(time.RFC3339)
	}
	if st.LastRecovery.Unix() > 0 {
		out.LastRecovery = st.LastRecovery.Format(time.RFC3339)
	}
	return out
}

func opByName(name string) (render.Op, bool) {
	for op := render.OpReload; op <= render.OpExit; op++ {
		if op.String() == name {
			return op, true
		}
	}
	return 0, false
}
