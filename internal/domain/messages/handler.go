package messages

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"consent-records/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/messages", func(r chi.Router) {
		r.Post("/", sendHandler(svc))
		r.Get("/contacts", contactsHandler(svc))
		r.Get("/conversations", conversationsHandler(svc))
		r.Get("/conversation/{userID}", conversationHandler(svc))
		r.Get("/unread-count", unreadCountHandler(svc))
	})
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type messageResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sentAt"`
	Read       bool      `json:"read"`
}

type contactResponse struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	UnreadCount int    `json:"unreadCount"`
}

type conversationResponse struct {
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int       `json:"unreadCount"`
}

type unreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// sendHandler godoc
// @Summary Enviar mensaje
// @Description Solo entre paciente y médico con acceso activo. Máximo 2000 caracteres.
// @Tags messages
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body sendMessageRequest true "Mensaje"
// @Success 201 {object} messageResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "user not found"
// @Router /messages [post]
func sendHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Send(r.Context(), claims.UserID, req.ReceiverID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMessageResponse(m))
	}
}

// contactsHandler godoc
// @Summary Contactos
// @Description Usuarios con los que hay un acceso activo, con mensajes sin leer.
// @Tags messages
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} contactResponse
// @Failure 401 {string} string "unauthorized"
// @Router /messages/contacts [get]
func contactsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.Contacts(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]contactResponse, 0, len(items))
		for _, c := range items {
			out = append(out, contactResponse{UserID: c.UserID, Name: c.Name, Role: c.Role, UnreadCount: c.Unread})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// conversationsHandler godoc
// @Summary Conversaciones
// @Description Último mensaje con cada usuario, más reciente primero.
// @Tags messages
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} conversationResponse
// @Failure 401 {string} string "unauthorized"
// @Router /messages/conversations [get]
func conversationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.Conversations(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]conversationResponse, 0, len(items))
		for _, c := range items {
			out = append(out, conversationResponse{
				UserID:        c.UserID,
				Name:          c.Name,
				Role:          c.Role,
				LastMessage:   c.LastMessage,
				LastMessageAt: c.LastMessageAt,
				UnreadCount:   c.Unread,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// conversationHandler godoc
// @Summary Conversación con un usuario
// @Description Mensajes en orden cronológico. Marca como leídos los recibidos.
// @Tags messages
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param userID path string true "ID del otro usuario"
// @Success 200 {array} messageResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "user not found"
// @Router /messages/conversation/{userID} [get]
func conversationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.Conversation(r.Context(), claims.UserID, chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]messageResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMessageResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// unreadCountHandler godoc
// @Summary Mensajes sin leer
// @Tags messages
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} unreadCountResponse
// @Failure 401 {string} string "unauthorized"
// @Router /messages/unread-count [get]
func unreadCountHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		n, err := svc.UnreadCount(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, unreadCountResponse{UnreadCount: n})
	}
}

func toMessageResponse(m Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		SentAt:     m.SentAt,
		Read:       m.Read,
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
