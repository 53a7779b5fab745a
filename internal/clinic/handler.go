package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xeze-org/clinic/backend/internal/middleware"
	"github.com/xeze-org/clinic/backend/internal/models"
	"github.com/xeze-org/clinic/backend/internal/store"
)

// SlipStore keeps appointment confirmation slips.
type SlipStore interface {
	PutSlip(ctx context.Context, patientID, appointmentID int64, body []byte) (string, error)
	GetSlip(ctx context.Context, patientID, appointmentID int64) ([]byte, error)
}

// ActivityReader lists recorded account events.
type ActivityReader interface {
	ListByUser(ctx context.Context, userID int64, limit int64) ([]models.Activity, error)
}

const activityLimit = 50

// Handler holds profile and appointment HTTP handlers.
type Handler struct {
	clinic   *Clinic
	slips    SlipStore
	activity ActivityReader
}

func NewHandler(c *Clinic, slips SlipStore, activity ActivityReader) *Handler {
	return &Handler{clinic: c, slips: slips, activity: activity}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps clinic errors to HTTP. notFound is the message for ErrNotFound.
func fail(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, "email is already registered to another patient")
	default:
		log.Printf("clinic error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
	}
	return id, ok
}

func decodeProfile(w http.ResponseWriter, r *http.Request) (*models.ProfileRequest, bool) {
	var req models.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.Name == "" || req.Email == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name, email and phone are required")
		return nil, false
	}
	return &req, true
}

// GetProfile returns the caller's patient profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.clinic.GetProfile(r.Context(), userID)
	if err != nil {
		fail(w, err, "no profile yet")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProfile creates the caller's patient profile.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeProfile(w, r)
	if !ok {
		return
	}

	p, err := h.clinic.CreateProfile(r.Context(), userID, req.Name, req.Email, req.Phone)
	if errors.Is(err, ErrConflict) {
		writeError(w, http.StatusConflict, "profile already exists or email is taken")
		return
	}
	if err != nil {
		fail(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProfile overwrites the caller's existing profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeProfile(w, r)
	if !ok {
		return
	}

	if err := h.clinic.UpdateProfile(r.Context(), userID, req.Name, req.Email, req.Phone); err != nil {
		fail(w, err, "no profile to update, create one first")
		return
	}
	p, err := h.clinic.GetProfile(r.Context(), userID)
	if err != nil {
		fail(w, err, "no profile to update, create one first")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Schedule books an appointment for the caller's patient profile.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Service == "" || req.Datetime == "" {
		writeError(w, http.StatusBadRequest, "service and datetime are required")
		return
	}

	p, appt, msg, err := h.clinic.ScheduleForUser(r.Context(), userID, req.Service, req.Datetime)
	if err != nil {
		fail(w, err, "create a profile before scheduling")
		return
	}

	if h.slips != nil {
		if _, err := h.slips.PutSlip(r.Context(), p.ID, appt.ID, confirmationSlip(p, appt)); err != nil {
			log.Printf("confirmation slip upload (non-fatal): %v", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"message":     msg,
		"appointment": appt,
	})
}

// ListAppointments returns every booking of the caller's patient profile.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.clinic.GetProfile(r.Context(), userID)
	if err != nil {
		fail(w, err, "no profile yet")
		return
	}
	appts, err := h.clinic.ListAppointments(r.Context(), p.ID)
	if err != nil {
		fail(w, err, "not found")
		return
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

// Confirmation streams the stored slip for one of the caller's bookings.
func (h *Handler) Confirmation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	p, err := h.clinic.GetProfile(r.Context(), userID)
	if err != nil {
		fail(w, err, "appointment not found")
		return
	}
	appt, err := h.clinic.Appointment(r.Context(), p.ID, id)
	if err != nil {
		fail(w, err, "appointment not found")
		return
	}
	if h.slips == nil {
		writeError(w, http.StatusNotFound, "confirmation not available")
		return
	}

	data, err := h.slips.GetSlip(r.Context(), p.ID, appt.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "confirmation not available")
		return
	}
	if err != nil {
		log.Printf("confirmation slip download: %v", err)
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=appointment-%d.txt", appt.ID))
	w.Write(data)
}

// Activity lists the caller's most recent account events.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if h.activity == nil {
		writeJSON(w, http.StatusOK, []models.Activity{})
		return
	}
	events, err := h.activity.ListByUser(r.Context(), userID, activityLimit)
	if err != nil {
		log.Printf("activity list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if events == nil {
		events = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, events)
}

func confirmationSlip(p *models.Patient, a *models.Appointment) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointment confirmation #%d\n", a.ID)
	fmt.Fprintf(&b, "Reference: %s\n", uuid.New().String())
	fmt.Fprintf(&b, "Patient:   %s <%s>, %s\n", p.Name, p.Email, p.Phone)
	fmt.Fprintf(&b, "Service:   %s\n", a.Service)
	fmt.Fprintf(&b, "When:      %s\n", a.Datetime)
	fmt.Fprintf(&b, "Booked at: %s\n", a.CreatedAt.UTC().Format(time.RFC3339))
	return []byte(b.String())
}
