package records

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

// RegisterRoutes comparte el prefijo /records con accessgrants; las rutas
// estáticas (/me, /patients, /access*) tienen prioridad sobre {patientID}.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/records/me", listMyRecordsHandler(svc))
	r.Get("/records/{patientID}", listPatientRecordsHandler(svc))
	r.Post("/records/{patientID}", createRecordHandler(svc))
}

type createRecordRequest struct {
	Type      string `json:"type" enums:"NOTE,DIAGNOSIS,PRESCRIPTION,LAB_RESULT,IMAGING,VITALS,PROCEDURE"`
	Title     string `json:"title"`
	Diagnosis string `json:"diagnosis"`
	Content   string `json:"content"`
}

type createRecordResponse struct {
	RecordID string `json:"recordId"`
}

// recordResponse representa un registro médico devuelto por la API.
type recordResponse struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patientId"`
	Type          RecordType `json:"type"`
	Title         string     `json:"title"`
	Diagnosis     string     `json:"diagnosis,omitempty"`
	Content       string     `json:"content"`
	CreatedByID   string     `json:"createdById"`
	CreatedByName string     `json:"createdByName"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// listMyRecordsHandler godoc
// @Summary Mis registros
// @Description Registros del paciente autenticado, más nuevos primero. El paciente nunca queda bloqueado por sus propios grants.
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param page query int false "Página (base 0)"
// @Param size query int false "Tamaño de página (default 10, máx 100)"
// @Param type query string false "Filtro por tipo (NOTE, VITALS, ...)"
// @Success 200 {object} pagination.Page[recordResponse]
// @Failure 400 {string} string "parámetros inválidos"
// @Failure 401 {string} string "unauthorized"
// @Router /records/me [get]
func listMyRecordsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		listRecords(w, r, svc, claims.UserID, claims.UserID)
	}
}

// listPatientRecordsHandler godoc
// @Summary Registros de un paciente
// @Description El médico necesita un acceso activo del paciente; si venció o fue revocado responde 403 "access required", nunca una lista vacía.
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param patientID path string true "ID del paciente"
// @Param page query int false "Página (base 0)"
// @Param size query int false "Tamaño de página (default 10, máx 100)"
// @Param type query string false "Filtro por tipo"
// @Success 200 {object} pagination.Page[recordResponse]
// @Failure 400 {string} string "parámetros inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "access required / forbidden"
// @Router /records/{patientID} [get]
func listPatientRecordsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		listRecords(w, r, svc, claims.UserID, chi.URLParam(r, "patientID"))
	}
}

// createRecordHandler godoc
// @Summary Agregar registro
// @Description Solo médicos con acceso activo. title y content obligatorios; type default NOTE.
// @Tags records
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param patientID path string true "ID del paciente"
// @Param payload body createRecordRequest true "Datos del registro"
// @Success 201 {object} createRecordResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "access required / forbidden"
// @Router /records/{patientID} [post]
func createRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rec, err := svc.Add(r.Context(), claims.UserID, chi.URLParam(r, "patientID"), CreateInput{
			Type:      req.Type,
			Title:     req.Title,
			Diagnosis: req.Diagnosis,
			Content:   req.Content,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createRecordResponse{RecordID: rec.ID})
	}
}

func listRecords(w http.ResponseWriter, r *http.Request, svc *Service, viewerID, patientID string) {
	p, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, total, err := svc.View(r.Context(), viewerID, patientID, Query{
		Type: r.URL.Query().Get("type"),
		Page: p,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(items))
	for _, rec := range items {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, pagination.NewPage(out, p, total))
}

func toRecordResponse(rec Record) recordResponse {
	return recordResponse{
		ID:            rec.ID,
		PatientID:     rec.PatientID,
		Type:          rec.Type,
		Title:         rec.Title,
		Diagnosis:     rec.Diagnosis,
		Content:       rec.Content,
		CreatedByID:   rec.CreatedByDoctorID,
		CreatedByName: rec.CreatedByName,
		CreatedAt:     rec.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnauthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrAccessRequired):
		http.Error(w, "access required", http.StatusForbidden)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
