package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/services"
)

// maxRosterUpload bounds an uploaded YAML roster
const maxRosterUpload = 1 << 20

// IndexPageData is passed to the committee picker
type IndexPageData struct {
	Title      string
	Committees []models.Committee
}

// SessionPageData is passed to the session page
type SessionPageData struct {
	Title     string
	Committee *models.Committee
}

// ==================== Pages ====================

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	committees, err := h.Committees.ListCommittees(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	h.templates.Index.ExecuteTemplate(w, "layout", IndexPageData{Title: "Committees", Committees: committees})
}

func (h *Handlers) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	committee, err := h.Committees.GetCommittee(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	h.templates.Session.ExecuteTemplate(w, "layout", SessionPageData{Title: committee.Name, Committee: committee})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, HealthResponse{Status: "ok"})
}

// ==================== Committees ====================

func (h *Handlers) handleListCommittees(w http.ResponseWriter, r *http.Request) {
	committees, err := h.Committees.ListCommittees(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, committees)
}

func (h *Handlers) handleCreateCommittee(w http.ResponseWriter, r *http.Request) {
	var req CommitteeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	id, err := h.Committees.CreateCommittee(r.Context(), req.Name, req.Settings)
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, CommitteeResponse{ID: id, Name: strings.TrimSpace(req.Name)})
}

func (h *Handlers) handleGetCommittee(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	committee, err := h.Committees.GetCommittee(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, committee)
}

func (h *Handlers) handleUpdateCommitteeSettings(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var settings models.CommitteeSettings
	if err := decodeJSON(r, &settings); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Committees.UpdateSettings(r.Context(), id, settings); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Committee settings updated")
}

func (h *Handlers) handleDeleteCommittee(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Committees.DeleteCommittee(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// ==================== Roster ====================

func (h *Handlers) handleGetMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	members, err := h.Committees.Members(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, MembersResponse{Countries: members})
}

func (h *Handlers) handleSetMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req MembersRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ctx := r.Context()
	dropped, err := h.Committees.SetMembers(ctx, id, req.Countries)
	if err != nil {
		respondError(w, err)
		return
	}
	members, err := h.Committees.Members(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, MembersResponse{Countries: members, Duplicates: dropped})
}

func (h *Handlers) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	code := chi.URLParam(r, "code")

	var req AttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Committees.SetAttendance(r.Context(), id, code, req.Attendance); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Attendance updated")
}

func (h *Handlers) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	var req RosterImportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Committees.ImportFromProvider(r.Context(), req.ProviderURL, req.Ref)
	if err != nil {
		respondError(w, err)
		return
	}
	respondImport(w, result)
}

func (h *Handlers) handleImportRosterYAML(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRosterUpload))
	if err != nil {
		respondError(w, BadRequest("Could not read roster upload"))
		return
	}
	if len(data) == 0 {
		respondError(w, BadRequest("Request body is empty"))
		return
	}

	result, err := h.Committees.ImportYAML(r.Context(), data)
	if err != nil {
		respondError(w, err)
		return
	}
	respondImport(w, result)
}

func respondImport(w http.ResponseWriter, result *services.ImportResult) {
	if result.Created {
		respondCreated(w, result)
		return
	}
	respondOK(w, result)
}

// ==================== Sharing ====================

func (h *Handlers) handleGetShareURL(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	url, err := h.Committees.SessionURL(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ShareURLResponse{URL: url})
}

func (h *Handlers) handleGetShareQR(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Committees.GenerateShareQR(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondPNG(w, png)
}

// ==================== Activity ====================

func (h *Handlers) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, err)
		return
	}

	entries, err := h.Activity.List(r.Context(), id, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, entries)
}

// ==================== Settings ====================

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	baseURL, err := h.Settings.GetBaseURL(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	rosterURL, err := h.Settings.GetRosterURL(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, SettingsResponse{BaseURL: baseURL, RosterURL: rosterURL})
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	settings := services.Settings{
		BaseURL:   req.BaseURL,
		RosterURL: req.RosterURL,
	}
	if err := h.Settings.UpdateSettings(r.Context(), settings); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Settings updated")
}

// ==================== Database Management ====================

func (h *Handlers) handleResetDatabase(w http.ResponseWriter, r *http.Request) {
	var req DatabaseResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Settings.ResetTables(r.Context(), req.Tables)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, result)
}
