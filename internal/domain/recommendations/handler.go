package recommendations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medicare-now/internal/gateway"
	"medicare-now/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/me/recommendations", overviewHandler(svc))
	r.Post("/patients/{patientID}/recommendations", createHandler(svc))
	r.Patch("/recommendations/{recommendationID}/progress", progressHandler(svc))
}

type createRequest struct {
	Description string `json:"descriere"`
	Type        string `json:"tipRecomandare"`
}

type progressRequest struct {
	Progress *int `json:"progres"`
}

type recommendationResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"pacientID"`
	MedicID     string    `json:"medicID"`
	Description string    `json:"descriere"`
	Type        string    `json:"tipRecomandare"`
	TypeLabel   string    `json:"tipLabel"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progres"`
	ProgressBar string    `json:"progressBar"`
	CreatedAt   time.Time `json:"dataCreare"`
}

type overviewResponse struct {
	Personalized    bool                     `json:"personalized"`
	Recommendations []recommendationResponse `json:"recommendations"`
	Active          int                      `json:"active"`
	Completed       int                      `json:"completed"`
	Total           int                      `json:"total"`
	Tips            []string                 `json:"tips"`
}

// overviewHandler godoc
// @Summary Recomendaciones del paciente autenticado
// @Description Lista las recomendaciones con contadores active/completed y consejos generales. Sin recomendaciones devuelve `personalized=false` y la lista de consejos por defecto.
// @Tags recommendations
// @Produce json
// @Success 200 {object} overviewResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/recommendations [get]
func overviewHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ov, err := svc.Overview(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		out := overviewResponse{
			Personalized:    ov.Personalized,
			Recommendations: make([]recommendationResponse, 0, len(ov.Items)),
			Active:          ov.Active,
			Completed:       ov.Completed,
			Total:           ov.Total,
			Tips:            ov.Tips,
		}
		for _, it := range ov.Items {
			out.Recommendations = append(out.Recommendations, toResponse(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createHandler godoc
// @Summary Crear recomendación para un paciente
// @Description Solo médicos con un grant activo del paciente que incluya `recommendations:write`.
// @Tags recommendations
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body createRequest true "Descripción y tipo"
// @Success 201 {object} recommendationResponse
// @Failure 400 {string} string "invalid input"
// @Failure 403 {string} string "forbidden"
// @Router /patients/{patientID}/recommendations [post]
func createHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !claims.IsMedic() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rec, err := svc.Create(r.Context(), CreateInput{
			MedicID:     claims.UserID,
			PatientID:   chi.URLParam(r, "patientID"),
			Description: req.Description,
			Type:        req.Type,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toResponse(rec))
	}
}

func progressHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req progressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Progress == nil {
			http.Error(w, "progres required", http.StatusBadRequest)
			return
		}

		rec, err := svc.UpdateProgress(r.Context(), claims.UserID, chi.URLParam(r, "recommendationID"), *req.Progress)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(rec))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "recommendation not found", http.StatusNotFound)
	case errors.Is(err, gateway.ErrBackendUnavailable):
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toResponse(r Recommendation) recommendationResponse {
	return recommendationResponse{
		ID:          r.ID,
		PatientID:   r.PatientID,
		MedicID:     r.MedicID,
		Description: r.Description,
		Type:        r.Type,
		TypeLabel:   TypeLabel(r.Type),
		Status:      r.Status,
		Progress:    r.Progress,
		ProgressBar: ProgressBar(r.Progress),
		CreatedAt:   r.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
