// Package watch is the live-reload server. It recompiles a source file on
// every change and pushes the rendered HTML fragment, or the compile
// error, to connected browsers over a websocket.
//
//	GET /        index page with a reconnecting client script
//	GET /listen  websocket; each message is a JSON Payload
//
// A new subscriber immediately receives the latest payload. Rebuilds that
// produce the same IR as the previous one are not re-broadcast.
package watch

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/irfmt"
	"github.com/aledsdavies/markerml/runtime/compiler"
	"github.com/aledsdavies/markerml/runtime/htmlgen"
)

const (
	DefaultDebounce = 100 * time.Millisecond

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

//go:embed index.html
var indexHTML []byte

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local development server
	},
}

// Option configures a Server.
type Option func(*Server)

// WithDebounce sets how long to wait after the last file event before
// rebuilding.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) {
		s.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCompileOptions forwards options to every compilation.
func WithCompileOptions(opts ...compiler.Option) Option {
	return func(s *Server) {
		s.compileOpts = append(s.compileOpts, opts...)
	}
}

// WithRenderOptions forwards options to the HTML backend. Output is always
// a fragment.
func WithRenderOptions(opts ...htmlgen.Option) Option {
	return func(s *Server) {
		s.renderOpts = append(s.renderOpts, opts...)
	}
}

// Server watches one source file.
type Server struct {
	path        string
	debounce    time.Duration
	logger      *slog.Logger
	compileOpts []compiler.Option
	renderOpts  []htmlgen.Option
	hub         *Hub
}

// New creates a server for the source file at path.
func New(path string, opts ...Option) *Server {
	invariant.Precondition(path != "", "watch path must not be empty")
	s := &Server{path: path, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.hub = newHub(s.logger)
	return s
}

// Hub returns the server's subscriber hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Build compiles and renders source. key identifies the output for
// deduplication: the IR digest on success, the error text otherwise.
func (s *Server) Build(source string) (key string, p Payload) {
	if strings.TrimSpace(source) == "" {
		return "empty", Payload{}
	}

	page, err := compiler.Compile(source, s.compileOpts...)
	if err != nil {
		return "error:" + err.Error(), Payload{Error: err.Error()}
	}

	digest, err := irfmt.Digest(page)
	if err != nil {
		return "error:" + err.Error(), Payload{Error: err.Error()}
	}

	html, err := htmlgen.RenderString(page, append(s.renderOpts, htmlgen.WithFragment())...)
	if err != nil {
		return "error:" + err.Error(), Payload{Error: err.Error()}
	}
	return digest, Payload{Code: html}
}

// Rebuild reads the file, builds it and publishes the result. It reports
// whether subscribers were sent anything.
func (s *Server) Rebuild() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("reading source", "path", s.path, "error", err)
		return s.hub.publish("error:"+err.Error(), Payload{Error: err.Error()})
	}

	key, p := s.Build(string(data))
	sent := s.hub.publish(key, p)
	switch {
	case !sent:
		s.logger.Debug("output unchanged", "path", s.path)
	case p.Error != "":
		s.logger.Info("compile failed", "path", s.path, "error", p.Error)
	default:
		s.logger.Info("page updated", "path", s.path, "digest", key)
	}
	return sent
}

// Watch rebuilds on start and after every write to the file until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file on save are followed.
func (s *Server) Watch(ctx context.Context) error {
	invariant.ContextNotBackground(ctx, "watch.Watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	s.Rebuild()

	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("stopping watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(s.debounce)

		case <-timer.C:
			s.Rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.serveIndex)
	mux.HandleFunc("GET /listen", s.serveListen)
	return mux
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) serveListen(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub.id)

	// Browsers never send anything; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("websocket read error", "id", sub.id, "error", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case p, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(p); err != nil {
				s.logger.Debug("websocket write failed", "id", sub.id, "error", err)
				return
			}

		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}

// ListenAndServe serves on addr and watches the file until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	invariant.ContextNotBackground(ctx, "watch.ListenAndServe")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("couldn't start web server: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	invariant.ContextNotBackground(ctx, "watch.Serve")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 2)
	go func() {
		errc <- s.Watch(ctx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()
	s.logger.Info("serving", "addr", "http://"+ln.Addr().String(), "file", s.path)

	var first error
	select {
	case <-ctx.Done():
	case first = <-errc:
	}
	cancel()
	s.hub.closeAll()

	shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil && first == nil {
		first = err
	}
	return first
}
