// Package server exposes the store over the JSON routes the editor's api.Client speaks,
// plus a websocket feed of team snapshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"deckhand/internal/model"
	"deckhand/internal/store"

	"go.uber.org/zap"
)

type Server struct {
	store  *store.Store
	logger *zap.Logger
	team   *teamHub
}

func New(st *store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: st, logger: logger, team: newTeamHub()}
}

// Close disconnects every team subscriber.
func (s *Server) Close() { s.team.stop() }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /presentations", s.handlePresentations)
	mux.HandleFunc("POST /presentations", s.handlePresentationCreate)
	mux.HandleFunc("GET /presentations/{id}", s.handlePresentation)
	mux.HandleFunc("PUT /presentations/{id}", s.handlePresentationUpdate)
	mux.HandleFunc("GET /presentations/{id}/slides", s.handleSlides)
	mux.HandleFunc("POST /presentations/{id}/slides", s.handleSlideCreate)
	mux.HandleFunc("PUT /slides/{id}/notes", s.handleSlideNotes)
	mux.HandleFunc("POST /slides/{id}/elements", s.handleElementCreate)
	mux.HandleFunc("PUT /elements/{id}", s.handleElementUpdate)
	mux.HandleFunc("GET /team", s.handleTeam)
	mux.HandleFunc("POST /team", s.handleTeamAdd)
	mux.HandleFunc("PUT /team/{id}", s.handleTeamUpdate)
	mux.HandleFunc("POST /team/{id}/remove", s.handleTeamRemove)
	mux.HandleFunc("GET /sharing/{id}", s.handleSharing)
	mux.HandleFunc("POST /sharing", s.handleSharingReplace)
	mux.HandleFunc("GET /ws/team", s.handleTeamWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handlePresentations(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store.ListPresentations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]model.Record, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Serialize())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePresentationCreate(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	p := &model.Presentation{}
	p.Load(rec)
	p.ID = model.UnsetID
	if err := s.store.CreatePresentation(r.Context(), p); err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	writeJSON(w, http.StatusCreated, p.Serialize())
}

func (s *Server) handlePresentation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := s.store.GetPresentation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Serialize())
}

func (s *Server) handlePresentationUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	p := &model.Presentation{}
	p.Load(rec)
	p.ID = id
	if err := s.store.UpdatePresentation(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Serialize())
}

func (s *Server) handleSlides(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	slides, err := s.store.ListSlides(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]model.Record, 0, len(slides))
	for _, sl := range slides {
		out = append(out, sl.Serialize())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSlideCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	sl := model.SlideFromRecord(rec)
	sl.ID = model.UnsetID
	sl.PresentationID = id
	sl.Elements = nil
	if err := s.store.CreateSlide(r.Context(), sl); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sl.Serialize())
}

func (s *Server) handleSlideNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	if err := s.store.UpdateSlideNotes(r.Context(), id, model.Normalize(rec, "notes").String("notes")); err != nil {
		s.writeError(w, r, err)
		return
	}
	sl, err := s.store.GetSlide(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sl.Serialize())
}

func (s *Server) handleElementCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	el := model.ElementFromRecord(rec)
	el.ID = model.UnsetID
	el.SlideID = id
	if err := s.store.CreateElement(r.Context(), el); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, el.Serialize())
}

func (s *Server) handleElementUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	el := model.ElementFromRecord(rec)
	el.ID = id
	if err := s.store.UpdateElement(r.Context(), el); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, el.Serialize())
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	out, err := s.teamSnapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTeamAdd(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	m := model.TeamMemberFromRecord(rec)
	m.ID = model.UnsetID
	if err := s.store.AddMember(r.Context(), m); err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	s.publishTeam(r.Context())
	writeJSON(w, http.StatusCreated, m.Serialize())
}

func (s *Server) handleTeamUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	m := model.TeamMemberFromRecord(rec)
	m.ID = id
	if err := s.store.UpdateMember(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publishTeam(r.Context())
	writeJSON(w, http.StatusOK, m.Serialize())
}

func (s *Server) handleTeamRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.RemoveMember(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publishTeam(r.Context())
	out, err := s.teamSnapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSharing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := s.store.GetSharing(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Serialize())
}

func (s *Server) handleSharingReplace(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	st := model.SharingStatusFromRecord(rec)
	if st.PresentationID == model.UnsetID {
		s.writeError(w, r, badRequest(errors.New("missing presentationId")))
		return
	}
	if err := s.store.ReplaceSharing(r.Context(), st); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Serialize())
}

func (s *Server) teamSnapshot(ctx context.Context) ([]model.Record, error) {
	team, err := s.store.ListTeam(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Record, 0, len(team))
	for _, m := range team {
		out = append(out, m.Serialize())
	}
	return out, nil
}

func (s *Server) publishTeam(ctx context.Context) {
	snap, err := s.teamSnapshot(ctx)
	if err != nil {
		s.logger.Warn("team snapshot failed", zap.Error(err))
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("team snapshot encode failed", zap.Error(err))
		return
	}
	s.team.broadcast(b)
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return badRequestError{err: err}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var br badRequestError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateMember):
		code = http.StatusConflict
	case errors.As(err, &br):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

func (s *Server) readRecord(w http.ResponseWriter, r *http.Request) (model.Record, bool) {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.UseNumber()
	var rec model.Record
	if err := dec.Decode(&rec); err != nil {
		s.writeError(w, r, badRequest(errors.New("invalid json body")))
		return nil, false
	}
	if rec == nil {
		rec = model.Record{}
	}
	return rec, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id: " + raw})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
