// Package server exposes the evolution service over HTTP.
//
// Routes are registered with method-qualified patterns, so a request
// that hits a known path with the wrong verb answers 405. All bodies
// are JSON; failures carry a {"error": "..."} payload.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"aviary/internal/model"
	"aviary/pkg/aviary"
)

const shutdownTimeout = 10 * time.Second

// Server translates HTTP requests into service calls.
type Server struct {
	svc *aviary.Service
}

// New returns a server backed by svc. The service must be initialized
// before the mux receives traffic.
func New(svc *aviary.Service) *Server {
	return &Server{svc: svc}
}

// Routes builds the API mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{sid}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{sid}/genomes", s.handleGenomes)
	mux.HandleFunc("GET /api/sessions/{sid}/pattern/{gid}", s.handlePattern)
	mux.HandleFunc("GET /api/sessions/{sid}/structure/{gid}", s.handleStructure)
	mux.HandleFunc("POST /api/sessions/{sid}/fitness", s.handleFitness)
	mux.HandleFunc("POST /api/sessions/{sid}/evolve", s.handleEvolve)
	mux.HandleFunc("GET /api/sessions/{sid}/history", s.handleHistory)
	mux.HandleFunc("GET /api/sessions/{sid}/status", s.handleStatus)
	mux.HandleFunc("GET /api/sessions/{sid}/constraints", s.handleConstraints)
	mux.HandleFunc("POST /api/gallery/animations", s.handleGallerySave)
	mux.HandleFunc("GET /api/gallery/animations", s.handleGalleryList)
	mux.HandleFunc("GET /api/gallery/animations/{id}", s.handleGalleryGet)
	mux.HandleFunc("DELETE /api/gallery/animations/{id}", s.handleGalleryDelete)
	return mux
}

// ListenAndServe runs the API server on addr until ctx ends. On
// cancellation it performs a bounded shutdown so in-flight requests are
// drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.Routes()}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type createSessionRequest struct {
	NumDrones      int   `json:"num_drones"`
	PopulationSize int   `json:"population_size"`
	Seed           int64 `json:"seed"`
}

type fitnessRequest struct {
	GenomeID *int     `json:"genome_id"`
	Fitness  *float64 `json:"fitness"`
}

type fitnessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type evolveRequest struct {
	DefaultFitness float64 `json:"default_fitness"`
}

type evolveResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	NewGeneration  int    `json:"new_generation"`
	PopulationSize int    `json:"population_size"`
}

type historyResponse struct {
	History []model.GenerationRecord `json:"history"`
}

type saveAnimationRequest struct {
	AnimationData json.RawMessage `json:"animation_data"`
	CPPNData      json.RawMessage `json:"cppn_data"`
}

type saveAnimationResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type galleryListResponse struct {
	Animations []model.GalleryListItem `json:"animations"`
	Total      int                     `json:"total"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Message: "aviary API is running"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := s.svc.CreateSession(aviary.SessionConfig{
		NumDrones:      req.NumDrones,
		PopulationSize: req.PopulationSize,
		Seed:           req.Seed,
	})
	if err != nil {
		serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSession(r.PathValue("sid")); err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "Session deleted successfully"})
}

func (s *Server) handleGenomes(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Genomes(r.PathValue("sid"))
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) {
	gid, err := strconv.Atoi(r.PathValue("gid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid genome id %q", r.PathValue("gid")))
		return
	}
	duration, err := queryFloat(r, "duration", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	anim, err := s.svc.Pattern(r.PathValue("sid"), gid, duration)
	if err != nil {
		serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, anim)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	gid, err := strconv.Atoi(r.PathValue("gid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid genome id %q", r.PathValue("gid")))
		return
	}
	structure, err := s.svc.Structure(r.PathValue("sid"), gid)
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

func (s *Server) handleFitness(w http.ResponseWriter, r *http.Request) {
	var req fitnessRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GenomeID == nil {
		writeError(w, http.StatusBadRequest, "genome_id is required")
		return
	}
	if req.Fitness == nil {
		writeError(w, http.StatusBadRequest, "fitness is required")
		return
	}
	if err := s.svc.AssignFitness(r.PathValue("sid"), *req.GenomeID, *req.Fitness); err != nil {
		serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, fitnessResponse{
		Success: true,
		Message: fmt.Sprintf("assigned fitness %.4f to genome %d", *req.Fitness, *req.GenomeID),
	})
}

func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	var req evolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sid := r.PathValue("sid")
	gen, err := s.svc.Evolve(r.Context(), sid, req.DefaultFitness)
	if err != nil {
		serviceError(w, err, http.StatusBadRequest)
		return
	}
	status, err := s.svc.Status(sid)
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, evolveResponse{
		Success:        true,
		Message:        fmt.Sprintf("advanced to generation %d", gen),
		NewGeneration:  gen,
		PopulationSize: status.PopulationSize,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.History(r.PathValue("sid"))
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: records})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Status(r.PathValue("sid"))
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	req := aviary.ConstraintsRequest{SessionID: r.PathValue("sid")}
	if raw := r.URL.Query().Get("genome_id"); raw != "" {
		gid, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid genome_id %q", raw))
			return
		}
		req.GenomeID = &gid
	}
	duration, err := queryFloat(r, "duration", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Duration = duration
	report, err := s.svc.CheckConstraints(req)
	if err != nil {
		serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGallerySave(w http.ResponseWriter, r *http.Request) {
	var req saveAnimationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.AnimationData) == 0 || !json.Valid(req.AnimationData) {
		writeError(w, http.StatusBadRequest, "animation_data must be valid JSON")
		return
	}
	if len(req.CPPNData) == 0 || !json.Valid(req.CPPNData) {
		writeError(w, http.StatusBadRequest, "cppn_data must be valid JSON")
		return
	}
	id, err := s.svc.SaveAnimation(r.Context(), req.AnimationData, req.CPPNData)
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, saveAnimationResponse{ID: id, Message: "Animation saved successfully"})
}

func (s *Server) handleGalleryList(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if offset < 0 || limit < 0 {
		writeError(w, http.StatusBadRequest, "offset and limit must be non-negative")
		return
	}
	items, err := s.svc.GalleryList(r.Context(), offset, limit)
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, galleryListResponse{Animations: items, Total: len(items)})
}

func (s *Server) handleGalleryGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid animation id %q", r.PathValue("id")))
		return
	}
	entry, err := s.svc.GalleryGet(r.Context(), id)
	if err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleGalleryDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid animation id %q", r.PathValue("id")))
		return
	}
	if err := s.svc.GalleryDelete(r.Context(), id); err != nil {
		serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "Animation deleted successfully"})
}

// decodeBody fills dst from the request body. An empty body leaves dst
// zeroed so optional request fields keep their defaults.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func queryFloat(r *http.Request, key string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

// serviceError maps service failures onto HTTP codes: NotFound
// sentinels to 404, an uninitialized service to 500, anything else to
// the handler's fallback.
func serviceError(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, aviary.ErrSessionNotFound),
		errors.Is(err, aviary.ErrGenomeNotFound),
		errors.Is(err, aviary.ErrGalleryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, aviary.ErrNotInitialized):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, fallback, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
