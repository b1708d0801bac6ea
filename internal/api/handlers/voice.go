package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/api/middleware"
	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/security"
	"github.com/brightsmile/reception/internal/voice"
)

// VoiceHandler mints realtime voice sessions scoped to one office.
type VoiceHandler struct {
	minter  *voice.Minter
	offices *office.Repository
	audit   *security.AuditLog
	logger  *zap.Logger
}

// NewVoiceHandler creates the handler.
func NewVoiceHandler(minter *voice.Minter, offices *office.Repository, audit *security.AuditLog, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{minter: minter, offices: offices, audit: audit, logger: logger}
}

// Routes returns the voice routes.
func (h *VoiceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	return r
}

type createSessionRequest struct {
	OfficeID uuid.UUID `json:"officeId"`
}

// CreateSession handles POST /voice/sessions. The returned client secret is
// short-lived; the caller opens the realtime connection with it directly.
func (h *VoiceHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.offices.Get(r.Context(), req.OfficeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	instructions := fmt.Sprintf(
		"You are the receptionist for %s. Help callers find open appointment slots and book them. Confirm name and phone number before booking.",
		o.Name)

	session, err := h.minter.Mint(r.Context(), instructions)
	if err != nil {
		if errors.Is(err, voice.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "voice is not configured")
			return
		}
		h.logger.Error("mint voice session failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "voice session could not be created")
		return
	}

	h.audit.Record(r.Context(), req.OfficeID, middleware.GetClientID(r.Context()),
		security.ActionVoiceSessionMinted, map[string]string{"sessionId": session.ID})
	writeJSON(w, http.StatusCreated, session)
}
