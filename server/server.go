// Package server previews the site directory and reloads open pages after
// every patch pass.
package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"castlepatch/patch"
)

// reloadHub fans reload notices out to the connected pages. Each page gets a
// one-slot channel so a slow page never blocks a patch pass.
type reloadHub struct {
	mu    sync.Mutex
	pages map[chan struct{}]struct{}
}

func (h *reloadHub) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.pages[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *reloadHub) unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	delete(h.pages, ch)
	h.mu.Unlock()
}

func (h *reloadHub) broadcast() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.pages {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return len(h.pages)
}

type Server struct {
	Dir        string
	Port       int
	hub        *reloadHub
	mu         sync.Mutex
	httpServer *http.Server
}

func NewServer(dir string, port int) *Server {
	return &Server{
		Dir:  dir,
		Port: port,
		hub:  &reloadHub{pages: make(map[chan struct{}]struct{})},
	}
}

// NotifyReload asks every open page to reload.
func (s *Server) NotifyReload() {
	n := s.hub.broadcast()
	slog.Debug("Reload sent", "pages", n)
}

// HandleSSE streams reload events to one page until it disconnects.
func (s *Server) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	reload := s.hub.subscribe()
	defer s.hub.unsubscribe(reload)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-reload:
			if _, err := fmt.Fprint(w, "data: reload\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

const reloadScript = `<script>
if (typeof EventSource !== 'undefined') {
    const es = new EventSource('/reload');
    es.onmessage = () => location.reload();
}
</script>
`

var reloadRule = patch.Rule{
	Name:    "reload-script",
	Locator: patch.Marker{Text: "</body>", Place: patch.Before},
	Applied: patch.Contains("new EventSource('/reload')"),
	Render:  patch.Static(reloadScript),
}

// InjectReload adds the live reload script before </body>. Pages without a
// body close tag are returned unchanged.
func InjectReload(page string) string {
	res, err := patch.Apply(page, reloadRule, nil)
	if err != nil {
		return page
	}
	return res.Content
}

// Handler serves the site in absDir. Pages are sent with the reload script
// added; every other file is served as is.
func (s *Server) Handler(absDir string) http.Handler {
	site := os.DirFS(absDir)
	files := http.FileServerFS(site)

	mux := http.NewServeMux()
	mux.HandleFunc("/reload", s.HandleSSE)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || strings.HasSuffix(name, "/") {
			name += "index.html"
		}
		if path.Ext(name) != ".html" {
			files.ServeHTTP(w, r)
			return
		}

		page, err := fs.ReadFile(site, name)
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, InjectReload(string(page)))
	})
	return mux
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	absDir, err := filepath.Abs(s.Dir)
	if err != nil {
		return fmt.Errorf("error getting absolute path: %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Handler(absDir),
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	slog.Debug("Starting preview server", "dir", absDir, "port", s.Port)
	fmt.Printf("Serving %s on http://localhost:%d\n", absDir, s.Port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes the listener and every open reload stream.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}
