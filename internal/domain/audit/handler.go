package audit

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"consent-records/internal/middleware"
	"consent-records/internal/platform/pagination"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/audit-logs", listAuditHandler(svc))
}

type entryResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName,omitempty"`
	ActorID     string    `json:"actorId"`
	ActorName   string    `json:"actorName,omitempty"`
	ActorRole   string    `json:"actorRole,omitempty"`
	Action      Action    `json:"action"`
	RecordID    string    `json:"recordId,omitempty"`
	RecordTitle string    `json:"recordTitle,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// listAuditHandler godoc
// @Summary Historial de auditoría
// @Description Paciente: accesos y cambios sobre sus registros. Médico: acciones realizadas por él. Otros roles: 403.
// @Tags audit
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param page query int false "Página (base 0)"
// @Param size query int false "Tamaño de página (default 10, máx 100)"
// @Success 200 {object} pagination.Page[entryResponse]
// @Failure 400 {string} string "invalid pagination params"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /audit-logs [get]
func listAuditHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := pagination.FromQuery(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, total, err := svc.List(r.Context(), claims.UserID, p)
		if err != nil {
			switch {
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, pagination.NewPage(out, p, total))
	}
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		PatientID:   e.PatientID,
		PatientName: e.PatientName,
		ActorID:     e.ActorID,
		ActorName:   e.ActorName,
		ActorRole:   e.ActorRole,
		Action:      e.Action,
		RecordID:    e.RecordID,
		RecordTitle: e.RecordTitle,
		Details:     e.Details,
		CreatedAt:   e.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
