package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sanonone/genomemap/pkg/search"
)

// maxBodySize bounds POST query bodies.
const maxBodySize = 1 << 20

// registerHTTPHandlers sets up the query API routes.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	// The query JSON travels URL-encoded in the last path segment.
	mux.HandleFunc("GET /movies/{query}", s.handleMoviesQuery)
	mux.HandleFunc("GET /tags/{query}", s.handleTagsQuery)

	mux.HandleFunc("POST /movies/search", s.handleMoviesSearch)
	mux.HandleFunc("POST /tags/search", s.handleTagsSearch)

	mux.HandleFunc("GET /map", s.handleMapInfo)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMapInfo(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, s.Movies.Index().Info())
}

func (s *Server) handleMoviesQuery(w http.ResponseWriter, r *http.Request) {
	var req search.MovieSearchRequest
	if !s.decodePathQuery(w, r, &req) {
		return
	}
	s.findMovies(w, r, req)
}

func (s *Server) handleMoviesSearch(w http.ResponseWriter, r *http.Request) {
	var req search.MovieSearchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.findMovies(w, r, req)
}

func (s *Server) handleTagsQuery(w http.ResponseWriter, r *http.Request) {
	var req search.TagSimilarityRequest
	if !s.decodePathQuery(w, r, &req) {
		return
	}
	s.similarTags(w, r, req)
}

func (s *Server) handleTagsSearch(w http.ResponseWriter, r *http.Request) {
	var req search.TagSimilarityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.similarTags(w, r, req)
}

func (s *Server) findMovies(w http.ResponseWriter, r *http.Request, req search.MovieSearchRequest) {
	if err := req.Validate(); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := s.queryContext(r)
	defer cancel()

	resp, err := s.Movies.FindMovies(ctx, req)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, resp)
}

func (s *Server) similarTags(w http.ResponseWriter, r *http.Request, req search.TagSimilarityRequest) {
	if err := req.Validate(); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := s.queryContext(r)
	defer cancel()

	resp, err := s.Tags.SimilarTags(ctx, req)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, resp)
}

func (s *Server) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.queryTimeout)
}

func (s *Server) decodePathQuery(w http.ResponseWriter, r *http.Request, dst any) bool {
	query := r.PathValue("query")
	if query == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "no query")
		return false
	}
	if err := json.Unmarshal([]byte(query), dst); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
		return false
	}
	return true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			s.writeHTTPError(w, http.StatusBadRequest, "no query")
			return false
		}
		s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
		return false
	}
	return true
}

func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.writeHTTPError(w, http.StatusServiceUnavailable, "query timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		s.writeHTTPError(w, http.StatusServiceUnavailable, "query cancelled")
	case errors.Is(err, search.ErrInvalidCount), errors.Is(err, search.ErrUnknownMethod):
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("query failed", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
		s.writeHTTPError(w, http.StatusInternalServerError, "query failed")
	}
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, ErrorResponse{Error: message})
}
