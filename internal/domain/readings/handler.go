package readings

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"medicare-now/internal/domain/careaccess"
	"medicare-now/internal/gateway"
	"medicare-now/internal/middleware"
)

const maxFrameBytes = 4 << 10

func RegisterRoutes(r chi.Router, svc *Service, grantsSvc *careaccess.Service) {
	r.Route("/health-data", func(hr chi.Router) {
		hr.Post("/evaluate", evaluateHandler(svc))
		hr.Post("/readings", recordHandler(svc))
		hr.Get("/readings", listOwnHandler(svc))
		hr.Get("/readings/{readingID}", getHandler(svc))
		hr.Delete("/readings/{readingID}", deleteHandler(svc))
	})

	// Médico con grant activo + readings:read
	r.Get("/patients/{patientID}/readings", listPatientHandler(svc, grantsSvc))
}

type alertResponse struct {
	Metric  Metric `json:"metric"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type evaluateResponse struct {
	Alerts  []alertResponse `json:"alerts"`
	Summary string          `json:"summary"`
}

type readingResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Pulse       int     `json:"pulse"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

type recordResponse struct {
	Reading readingResponse `json:"reading"`
	Alerts  []alertResponse `json:"alerts"`
	Summary string          `json:"summary"`
}

// evaluateHandler godoc
// @Summary Evaluar un frame de signos vitales
// @Description Devuelve las alertas (pulso 60-100 bpm, temperatura 36.0-37.5 °C, humedad 30-70 %) sin guardar nada.
// @Tags health-data
// @Accept json
// @Produce json
// @Param payload body Frame true "Frame del dispositivo"
// @Success 200 {object} evaluateResponse
// @Failure 400 {string} string "data format error"
// @Failure 401 {string} string "unauthorized"
// @Router /health-data/evaluate [post]
func evaluateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		f, ok := decodeFrame(w, r)
		if !ok {
			return
		}

		alerts := svc.Evaluate(f)
		writeJSON(w, http.StatusOK, evaluateResponse{Alerts: toAlertResponses(alerts), Summary: Summary(alerts)})
	}
}

// recordHandler godoc
// @Summary Guardar una lectura
// @Tags health-data
// @Accept json
// @Produce json
// @Param payload body Frame true "Frame del dispositivo"
// @Success 201 {object} recordResponse
// @Failure 400 {string} string "data format error"
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "backend unavailable"
// @Router /health-data/readings [post]
func recordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		f, ok := decodeFrame(w, r)
		if !ok {
			return
		}

		rec, err := svc.Record(r.Context(), userID, f)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, recordResponse{
			Reading: toReadingResponse(rec.Reading),
			Alerts:  toAlertResponses(rec.Alerts),
			Summary: Summary(rec.Alerts),
		})
	}
}

func listOwnHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		items, err := svc.List(r.Context(), userID, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReadingResponses(items))
	}
}

func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		rd, err := svc.Get(r.Context(), userID, chi.URLParam(r, "readingID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReadingResponse(rd))
	}
}

func deleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), userID, chi.URLParam(r, "readingID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listPatientHandler godoc
// @Summary Lecturas de un paciente
// @Description El paciente siempre puede ver las suyas. Un médico necesita un grant activo con scope `readings:read`.
// @Tags health-data
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param limit query int false "Máximo de lecturas (1-500). Por defecto 50"
// @Success 200 {array} readingResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /patients/{patientID}/readings [get]
func listPatientHandler(svc *Service, grantsSvc *careaccess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if patientID != claims.UserID {
			if !claims.IsMedic() {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if err := grantsSvc.Authorize(r.Context(), patientID, claims.UserID, careaccess.ScopeReadingsRead); err != nil {
				if errors.Is(err, careaccess.ErrForbidden) || errors.Is(err, careaccess.ErrInvalidInput) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				writeError(w, err)
				return
			}
		}

		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		items, err := svc.List(r.Context(), patientID, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReadingResponses(items))
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func decodeFrame(w http.ResponseWriter, r *http.Request) (Frame, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return Frame{}, false
	}
	f, err := ParseFrame(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return Frame{}, false
	}
	return f, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxListLimit {
		http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "reading not found", http.StatusNotFound)
	case errors.Is(err, gateway.ErrBackendUnavailable):
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toAlertResponses(alerts []Alert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{Metric: a.Metric, Level: a.Level, Message: a.Message})
	}
	return out
}

func toReadingResponse(r Reading) readingResponse {
	return readingResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		Pulse:       r.Pulse,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Timestamp:   r.Timestamp,
	}
}

func toReadingResponses(items []Reading) []readingResponse {
	out := make([]readingResponse, 0, len(items))
	for _, r := range items {
		out = append(out, toReadingResponse(r))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
