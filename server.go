package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ukvd/vrmlookup/cache"
	"github.com/ukvd/vrmlookup/config"
	"github.com/ukvd/vrmlookup/log"
	"github.com/ukvd/vrmlookup/lookup"
	"github.com/ukvd/vrmlookup/middleware"
	"github.com/ukvd/vrmlookup/upstream"
)

// fallbackHomePage is served when no static index.html is available.
const fallbackHomePage = `<!doctype html>
<html>
	<head><title>UK Vehicle Lookup Service</title></head>
	<body>
		<h1>UK Vehicle Lookup Service</h1>
		<p>Look up a registration mark: <code>GET /AB12CDE</code></p>
	</body>
</html>
`

// lookupServer routes inbound requests and owns the lookup coordinator.
// applyConfig swaps the coordinator on config reload; in-flight requests
// finish against the coordinator they started with.
type lookupServer struct {
	mu          sync.RWMutex
	coordinator *lookup.Coordinator
	staticDir   string
}

func newLookupServer() *lookupServer {
	return &lookupServer{}
}

// applyConfig rebuilds the cache store, fetcher and coordinator from cfg.
// The cache starts empty after a reload.
func (s *lookupServer) applyConfig(cfg *config.Config) {
	store := cache.NewStore(cfg.Cache.MaxEntries)
	fetcher := upstream.NewHTTPFetcher(cfg.Upstream)
	coordinator := lookup.NewCoordinator(store, fetcher, lookup.Config{
		FreshTTL:     time.Duration(cfg.Cache.FreshTTL),
		NegativeTTL:  time.Duration(cfg.Cache.NegativeTTL),
		FetchTimeout: time.Duration(cfg.Upstream.Timeout),
	}, promMetrics{})

	s.mu.Lock()
	s.coordinator = coordinator
	s.staticDir = cfg.Web.StaticDir
	s.mu.Unlock()
}

func (s *lookupServer) lookupCoordinator() *lookup.Coordinator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coordinator
}

func (s *lookupServer) static() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staticDir
}

// handler wires the metrics endpoint and the CORS wrapper around the
// server. Split out so tests can build the exact production handler.
func handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", server)
	return middleware.NewCORSMiddleware(mux)
}

func (s *lookupServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		statusCodes.With(statusLabels(http.StatusMethodNotAllowed)).Inc()
		return
	}

	switch {
	case r.URL.Path == "/":
		s.serveHome(w, r)
	case r.URL.Path == "/favicon.ico":
		s.serveFavicon(w, r)
	case strings.HasPrefix(r.URL.Path, "/static/"):
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.static()))).ServeHTTP(w, r)
	default:
		s.serveLookup(w, r)
	}
}

func (s *lookupServer) serveHome(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(s.static(), "index.html")
	if _, err := os.Stat(index); err == nil {
		http.ServeFile(w, r, index)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(fallbackHomePage))
}

func (s *lookupServer) serveFavicon(w http.ResponseWriter, r *http.Request) {
	icon := filepath.Join(s.static(), "favicon.ico")
	if _, err := os.Stat(icon); err == nil {
		http.ServeFile(w, r, icon)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *lookupServer) serveLookup(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/")
	if strings.ContainsRune(raw, '/') {
		http.NotFound(w, r)
		statusCodes.With(statusLabels(http.StatusNotFound)).Inc()
		return
	}

	log.Debugf("lookup %q from %s", raw, r.RemoteAddr)
	rec, err := s.lookupCoordinator().Lookup(r.Context(), raw)
	code := writeLookupResult(w, r, rec, err)
	statusCodes.With(statusLabels(code)).Inc()
}
