package accessgrants

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

// Las rutas cuelgan de /records para coincidir con el contrato del cliente;
// records registra el resto de ese prefijo.
func RegisterRoutes(r chi.Router, svc *Service) {
	// Paciente: otorgar, listar, revocar, extender
	r.Post("/records/access", grantAccessHandler(svc))
	r.Get("/records/accesses", listAccessesHandler(svc))
	r.Delete("/records/access/{grantID}", revokeAccessHandler(svc))
	r.Put("/records/access/{grantID}/extend", extendAccessHandler(svc))

	// Médico: pacientes que le dieron acceso
	r.Get("/records/patients", listPatientsHandler(svc))
}

type grantAccessRequest struct {
	DoctorEmail string `json:"doctorEmail"`
}

type extendAccessRequest struct {
	Days int `json:"days"`
}

// grantResponse representa un acceso otorgado, visto por el paciente.
type grantResponse struct {
	ID          string      `json:"id"`
	PatientID   string      `json:"patientId"`
	DoctorID    string      `json:"doctorId"`
	DoctorName  string      `json:"doctorName,omitempty"`
	DoctorEmail string      `json:"doctorEmail"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	RevokedAt   *time.Time  `json:"revokedAt,omitempty"`
	DaysLeft    int         `json:"daysLeft"`
	ExpiryClass ExpiryClass `json:"expiryClass"`
}

// patientResponse es una fila del listado de pacientes del médico.
type patientResponse struct {
	AccessID     string      `json:"accessId"`
	PatientID    string      `json:"patientId"`
	PatientName  string      `json:"patientName"`
	PatientEmail string      `json:"patientEmail"`
	GrantedAt    time.Time   `json:"grantedAt"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	DaysLeft     int         `json:"daysLeft"`
	ExpiryClass  ExpiryClass `json:"expiryClass"`
}

// grantAccessHandler godoc
// @Summary Otorgar acceso a un médico
// @Description El paciente otorga acceso por 30 días (configurable) al médico con ese email. Si ya existe un acceso activo se renueva (mismo id).
// @Tags access
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body grantAccessRequest true "Email del médico"
// @Success 201 {object} grantResponse
// @Failure 400 {string} string "invalid json / email inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "no doctor registered with that email"
// @Failure 409 {string} string "user is not a doctor"
// @Router /records/access [post]
func grantAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req grantAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		g, err := svc.Grant(r.Context(), claims.UserID, req.DoctorEmail)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toGrantResponse(svc.view(g, svc.now()), ""))
	}
}

// listAccessesHandler godoc
// @Summary Listar accesos activos
// @Description Accesos activos (no revocados, no vencidos) otorgados por el paciente, en orden de creación.
// @Tags access
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /records/accesses [get]
func listAccessesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListActive(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]grantResponse, 0, len(items))
		for _, v := range items {
			out = append(out, toGrantResponse(v, v.CounterpartName))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// revokeAccessHandler godoc
// @Summary Revocar acceso
// @Description Revoca un acceso activo. El médico pierde acceso en su próximo request. Revocar un acceso ya revocado o vencido devuelve 409.
// @Tags access
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param grantID path string true "ID del acceso"
// @Success 200 {object} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "invalid state"
// @Router /records/access/{grantID} [delete]
func revokeAccessHandler(svc *Service) http.HandlerFunc {
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

		writeJSON(w, http.StatusOK, toGrantResponse(svc.view(g, svc.now()), ""))
	}
}

// extendAccessHandler godoc
// @Summary Extender acceso
// @Description Suma `days` (1-365) al vencimiento actual. No aplica a accesos revocados o vencidos.
// @Tags access
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param grantID path string true "ID del acceso"
// @Param payload body extendAccessRequest true "Días a extender"
// @Success 200 {object} grantResponse
// @Failure 400 {string} string "days must be between 1 and 365"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "invalid state"
// @Router /records/access/{grantID}/extend [put]
func extendAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req extendAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		g, err := svc.Extend(r.Context(), chi.URLParam(r, "grantID"), claims.UserID, req.Days)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toGrantResponse(svc.view(g, svc.now()), ""))
	}
}

// listPatientsHandler godoc
// @Summary Pacientes del médico
// @Description Pacientes con acceso activo al médico autenticado, ordenados por vencimiento descendente.
// @Tags access
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param page query int false "Página (base 0)"
// @Param size query int false "Tamaño de página (default 10, máx 100)"
// @Success 200 {object} pagination.Page[patientResponse]
// @Failure 400 {string} string "invalid pagination params"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /records/patients [get]
func listPatientsHandler(svc *Service) http.HandlerFunc {
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

		items, total, err := svc.ListPatients(r.Context(), claims.UserID, p)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]patientResponse, 0, len(items))
		for _, v := range items {
			out = append(out, patientResponse{
				AccessID:     v.ID,
				PatientID:    v.PatientID,
				PatientName:  v.CounterpartName,
				PatientEmail: v.CounterpartEmail,
				GrantedAt:    v.CreatedAt,
				ExpiresAt:    v.ExpiresAt,
				DaysLeft:     v.Expiry.DaysLeft,
				ExpiryClass:  v.Expiry.Class,
			})
		}
		writeJSON(w, http.StatusOK, pagination.NewPage(out, p, total))
	}
}

func toGrantResponse(v View, doctorName string) grantResponse {
	return grantResponse{
		ID:          v.ID,
		PatientID:   v.PatientID,
		DoctorID:    v.DoctorID,
		DoctorName:  doctorName,
		DoctorEmail: v.DoctorEmail,
		Status:      v.Status,
		CreatedAt:   v.CreatedAt,
		ExpiresAt:   v.ExpiresAt,
		RevokedAt:   v.RevokedAt,
		DaysLeft:    v.Expiry.DaysLeft,
		ExpiryClass: v.Expiry.Class,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnauthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDoctorNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrBadState), errors.Is(err, ErrNotDoctor):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
