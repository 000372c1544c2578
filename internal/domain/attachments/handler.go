package attachments

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"consent-records/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

// RegisterRoutes monta /files. blobs es opcional: el store en memoria sirve
// sus propias URLs firmadas bajo /files/blob/.
func RegisterRoutes(r chi.Router, svc *Service, blobs http.Handler) {
	r.Route("/files", func(r chi.Router) {
		if blobs != nil {
			r.Handle("/blob/*", blobs)
		}
		r.Post("/upload/{recordID}", uploadHandler(svc))
		r.Get("/record/{recordID}", listHandler(svc))
		r.Get("/download/{attachmentID}", downloadHandler(svc))
		r.Delete("/{attachmentID}", deleteHandler(svc))
	})
}

type attachmentResponse struct {
	ID         string    `json:"id"`
	RecordID   string    `json:"recordId"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type downloadResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	FileName    string    `json:"fileName"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// uploadHandler godoc
// @Summary Subir adjuntos
// @Description Solo médicos con acceso activo al paciente dueño del registro. Campo multipart "files" (uno o varios).
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param recordID path string true "ID del registro"
// @Param files formData file true "Archivos"
// @Success 201 {array} attachmentResponse
// @Failure 400 {string} string "multipart inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "access required / forbidden"
// @Failure 404 {string} string "not found"
// @Failure 413 {string} string "file too large"
// @Router /files/upload/{recordID} [post]
func uploadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Margen para los headers de cada parte.
		r.Body = http.MaxBytesReader(w, r.Body, svc.MaxBytes()*4+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				http.Error(w, ErrTooLarge.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid multipart", http.StatusBadRequest)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		headers := r.MultipartForm.File["files"]
		files := make([]FileInput, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, "invalid multipart", http.StatusBadRequest)
				return
			}
			defer func(f multipart.File) { _ = f.Close() }(f)

			files = append(files, FileInput{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			})
		}

		items, err := svc.Upload(r.Context(), claims.UserID, chi.URLParam(r, "recordID"), files)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toResponses(items))
	}
}

// listHandler godoc
// @Summary Adjuntos de un registro
// @Description Paciente dueño o médico con acceso activo.
// @Tags files
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param recordID path string true "ID del registro"
// @Success 200 {array} attachmentResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "access required / forbidden"
// @Failure 404 {string} string "not found"
// @Router /files/record/{recordID} [get]
func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.List(r.Context(), claims.UserID, chi.URLParam(r, "recordID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponses(items))
	}
}

// downloadHandler godoc
// @Summary URL de descarga
// @Description Devuelve una URL temporal (30 minutos por defecto).
// @Tags files
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param attachmentID path string true "ID del adjunto"
// @Success 200 {object} downloadResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "access required / forbidden"
// @Failure 404 {string} string "not found"
// @Router /files/download/{attachmentID} [get]
func downloadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.DownloadURL(r.Context(), claims.UserID, chi.URLParam(r, "attachmentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, downloadResponse{
			DownloadURL: d.URL,
			FileName:    d.FileName,
			ExpiresAt:   d.ExpiresAt,
		})
	}
}

// deleteHandler godoc
// @Summary Eliminar adjunto
// @Description Solo médicos con acceso activo.
// @Tags files
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param attachmentID path string true "ID del adjunto"
// @Success 204 {string} string ""
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "access required / forbidden"
// @Failure 404 {string} string "not found"
// @Router /files/{attachmentID} [delete]
func deleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "attachmentID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toResponses(items []Attachment) []attachmentResponse {
	out := make([]attachmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, attachmentResponse{
			ID:         a.ID,
			RecordID:   a.RecordID,
			FileName:   a.FileName,
			FileType:   a.ContentType,
			FileSize:   a.Size,
			UploadedBy: a.UploadedBy,
			UploadedAt: a.UploadedAt,
		})
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrUnauthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrAccessRequired):
		http.Error(w, "access required", http.StatusForbidden)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
