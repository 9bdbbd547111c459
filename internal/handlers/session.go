package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/gavel/internal/services"
	"github.com/abrezinsky/gavel/internal/session"
)

// sessionAction is a session operation that needs nothing beyond the committee
type sessionAction func(s services.SessionServicer, r *http.Request, committeeID int64) (*services.SessionView, error)

// sessionHandler adapts a no-body session operation into a handler
func (h *Handlers) sessionHandler(action sessionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "id")
		if err != nil {
			respondError(w, err)
			return
		}

		view, err := action(h.Sessions, r, id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondOK(w, view)
	}
}

func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.sessionHandler(func(s services.SessionServicer, r *http.Request, id int64) (*services.SessionView, error) {
		return s.State(r.Context(), id)
	})(w, r)
}

// ==================== Speakers ====================

func (h *Handlers) handleAddSpeaker(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req SpeakerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	view, err := h.Sessions.AddSpeaker(r.Context(), id, req.Code)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

func (h *Handlers) handleRemoveSpeaker(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	code := chi.URLParam(r, "code")

	view, err := h.Sessions.RemoveSpeaker(r.Context(), id, code)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

func (h *Handlers) handleNextSpeaker(w http.ResponseWriter, r *http.Request) {
	h.sessionHandler(func(s services.SessionServicer, r *http.Request, id int64) (*services.SessionView, error) {
		return s.NextSpeaker(r.Context(), id)
	})(w, r)
}

func (h *Handlers) handleYield(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req YieldRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	view, err := h.Sessions.Yield(r.Context(), id, req.To)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

func (h *Handlers) handleReorderSpeakers(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req SpeakerOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	view, err := h.Sessions.ReorderSpeakers(r.Context(), id, req.Codes)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

func (h *Handlers) handleDropSpeaker(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req DropRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	view, err := h.Sessions.DropSpeaker(r.Context(), id, req.Payload, req.Target)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

// ==================== Timer ====================

func (h *Handlers) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	h.sessionHandler(func(s services.SessionServicer, r *http.Request, id int64) (*services.SessionView, error) {
		return s.StartTimer(r.Context(), id)
	})(w, r)
}

func (h *Handlers) handlePauseTimer(w http.ResponseWriter, r *http.Request) {
	h.sessionHandler(func(s services.SessionServicer, r *http.Request, id int64) (*services.SessionView, error) {
		return s.PauseTimer(r.Context(), id)
	})(w, r)
}

func (h *Handlers) handleToggleTimer(w http.ResponseWriter, r *http.Request) {
	h.sessionHandler(func(s services.SessionServicer, r *http.Request, id int64) (*services.SessionView, error) {
		return s.ToggleTimer(r.Context(), id)
	})(w, r)
}

func (h *Handlers) handleResetTimer(w http.ResponseWriter, r *http.Request) {
	h.sessionHandler(func(s services.SessionServicer, r *http.Request, id int64) (*services.SessionView, error) {
		return s.ResetTimer(r.Context(), id)
	})(w, r)
}

func (h *Handlers) handleSetTime(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req SetTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	view, err := h.Sessions.SetTime(r.Context(), id, req.Minutes, req.Seconds, req.UpdateMotion)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

// ==================== Motions ====================

func (h *Handlers) handleCreateMotion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var in session.MotionInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}
	in.CommitteeID = id

	motion, err := h.Sessions.CreateMotion(r.Context(), id, in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, motion)
}

func (h *Handlers) handleVoteMotion(w http.ResponseWriter, r *http.Request) {
	id, motionID, err := parseMotionParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	outcome, err := h.Sessions.Vote(r.Context(), id, motionID, req.VotesFor, req.VotesAgainst, req.Abstentions)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, outcome)
}

func (h *Handlers) handleExtendMotion(w http.ResponseWriter, r *http.Request) {
	id, motionID, err := parseMotionParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req session.ExtensionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	outcome, err := h.Sessions.Extend(r.Context(), id, motionID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, outcome)
}

func (h *Handlers) handleAdjournMotion(w http.ResponseWriter, r *http.Request) {
	id, motionID, err := parseMotionParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	motion, err := h.Sessions.Adjourn(r.Context(), id, motionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, motion)
}

func (h *Handlers) handleEditMotion(w http.ResponseWriter, r *http.Request) {
	id, motionID, err := parseMotionParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req MotionEditRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	motion, err := h.Sessions.EditMotion(r.Context(), id, motionID, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, motion)
}

func (h *Handlers) handleReorderMotions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req MotionOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	motions, err := h.Sessions.ReorderMotions(r.Context(), id, req.IDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, motions)
}

func parseMotionParams(r *http.Request) (committeeID, motionID int64, err error) {
	if committeeID, err = parseIDParam(r, "id"); err != nil {
		return 0, 0, err
	}
	if motionID, err = parseIDParam(r, "motionID"); err != nil {
		return 0, 0, err
	}
	return committeeID, motionID, nil
}
