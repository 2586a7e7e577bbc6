package careaccess

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
	r.Route("/care/grants", func(gr chi.Router) {
		gr.Post("/", inviteHandler(svc))
		gr.Post("/{grantID}/accept", acceptHandler(svc))
		gr.Post("/{grantID}/revoke", revokeHandler(svc))
	})

	r.Get("/me/grants", listMyGrantsHandler(svc))
}

type inviteRequest struct {
	MedicID string  `json:"medicId"`
	Scopes  []Scope `json:"scopes"`
}

type grantResponse struct {
	ID        string     `json:"id"`
	PatientID string     `json:"patientId"`
	MedicID   string     `json:"medicId"`
	Scopes    []Scope    `json:"scopes"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

type myGrantsResponse struct {
	AsPatient []grantResponse `json:"asPatient"`
	AsMedic   []grantResponse `json:"asMedic"`
}

// inviteHandler godoc
// @Summary Compartir datos con un médico
// @Description El paciente autenticado invita a un médico. Sin scopes se aplican `readings:read` y `recommendations:write`. Re-invitar actualiza los scopes del grant vigente.
// @Tags care
// @Accept json
// @Produce json
// @Param payload body inviteRequest true "Médico y scopes"
// @Success 201 {object} grantResponse
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Router /care/grants [post]
func inviteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req inviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.MedicID) == "" {
			http.Error(w, "medicId required", http.StatusBadRequest)
			return
		}

		g, err := svc.Invite(r.Context(), InviteInput{
			PatientID: claims.UserID,
			MedicID:   req.MedicID,
			Scopes:    req.Scopes,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

func listMyGrantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		allowed := parseStatusFilter(r.URL.Query().Get("status"))

		asPatient, err := svc.ListByPatient(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		asMedic, err := svc.ListByMedic(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, myGrantsResponse{
			AsPatient: toGrantResponses(asPatient, allowed),
			AsMedic:   toGrantResponses(asMedic, allowed),
		})
	}
}

func acceptHandler(svc *Service) http.HandlerFunc {
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

		g, err := svc.Accept(r.Context(), chi.URLParam(r, "grantID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func revokeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		g, err := svc.Revoke(r.Context(), chi.URLParam(r, "grantID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "grant not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, gateway.ErrBackendUnavailable):
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:        g.ID,
		PatientID: g.PatientID,
		MedicID:   g.MedicID,
		Scopes:    g.Scopes,
		Status:    g.Status,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
		RevokedAt: g.RevokedAt,
	}
}

func toGrantResponses(items []Grant, allowed map[Status]struct{}) []grantResponse {
	out := make([]grantResponse, 0, len(items))
	for _, g := range items {
		if len(allowed) > 0 {
			if _, ok := allowed[g.Status]; !ok {
				continue
			}
		}
		out = append(out, toGrantResponse(g))
	}
	return out
}

// status=invited,active (CSV opcional)
func parseStatusFilter(raw string) map[Status]struct{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[Status]struct{}{}
	for _, p := range strings.Split(raw, ",") {
		if s := Status(strings.TrimSpace(p)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
