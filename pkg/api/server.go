package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rubiojr/gridsearch/pkg/listing"
	"github.com/rubiojr/gridsearch/pkg/log"
)

// Server serves the listing over HTTP. Each request gets its own datagrid;
// only the listing is shared, and Reload swaps it atomically.
type Server struct {
	mu      sync.RWMutex
	listing *listing.Listing
	logger  *log.Logger
}

func NewServer(l *listing.Listing) *Server {
	return &Server{
		listing: l,
		logger:  log.ForService("api"),
	}
}

// Reload replaces the listing served by subsequent requests.
func (s *Server) Reload(l *listing.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing = l
}

func (s *Server) current() *listing.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listing
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
