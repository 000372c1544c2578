package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "consent-records/docs"
	blobmem "consent-records/internal/adapters/blob/memory"
	mem "consent-records/internal/adapters/storage/memory"
	pg "consent-records/internal/adapters/storage/postgres"
	"consent-records/internal/domain/accessgrants"
	"consent-records/internal/domain/attachments"
	"consent-records/internal/domain/audit"
	"consent-records/internal/domain/messages"
	"consent-records/internal/domain/records"
	"consent-records/internal/domain/users"
	"consent-records/internal/middleware"
	"consent-records/internal/platform/logger"
	"consent-records/internal/ports/auth"
	"consent-records/internal/ports/blob"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	TokenIssuer  auth.TokenIssuer  // nil => login responde 503

	// DebugHeaders acepta X-Debug-User-ID también con verifier (solo dev).
	DebugHeaders bool

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: si no viene, blobs en memoria firmados con BlobSigningKey.
	Blobs          blob.Store
	BlobSigningKey string

	Logger logger.Logger
	Clock  func() time.Time

	GrantDefaultDays int
	DownloadURLTTL   time.Duration
	MaxUploadBytes   int64
}

// App expone el handler y los servicios que main necesita fuera de HTTP.
type App struct {
	Handler http.Handler

	Users    *users.Service
	Grants   *accessgrants.Service
	Records  *records.Service
	Files    *attachments.Service
	Messages *messages.Service
	Audit    *audit.Service
}

type repos struct {
	users    users.Repository
	grants   accessgrants.Repository
	records  records.Repository
	files    attachments.Repository
	messages messages.Repository
	audit    audit.Repository
}

func newRepos(db *sql.DB) repos {
	if db != nil {
		return repos{
			users:    pg.NewUsersRepo(db),
			grants:   pg.NewAccessGrantsRepo(db),
			records:  pg.NewRecordsRepo(db),
			files:    pg.NewAttachmentsRepo(db),
			messages: pg.NewMessagesRepo(db),
			audit:    pg.NewAuditRepo(db),
		}
	}
	return repos{
		users:    mem.NewUsersRepo(),
		grants:   mem.NewAccessGrantsRepo(),
		records:  mem.NewRecordsRepo(),
		files:    mem.NewAttachmentsRepo(),
		messages: mem.NewMessagesRepo(),
		audit:    mem.NewAuditRepo(),
	}
}

func NewRouter(opts Options) http.Handler {
	return Build(opts).Handler
}

// Build arma repos, servicios y rutas.
func Build(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	rp := newRepos(opts.DB)

	blobs := opts.Blobs
	var blobHandler http.Handler
	if blobs == nil {
		key := opts.BlobSigningKey
		if key == "" {
			key = uuid.NewString()
		}
		store := blobmem.New(key, blobmem.DefaultPrefix).WithClock(now)
		blobs = store
		blobHandler = store
	} else if h, ok := blobs.(http.Handler); ok {
		blobHandler = h
	}

	// Servicios por módulo
	usersSvc := users.NewService(rp.users, opts.TokenIssuer, users.WithClock(now))
	auditSvc := audit.NewService(rp.audit, usersSvc, audit.WithClock(now), audit.WithLogger(log))
	grantsSvc := accessgrants.NewService(rp.grants, usersSvc, auditSvc,
		accessgrants.WithClock(now),
		accessgrants.WithDefaultDays(opts.GrantDefaultDays),
	)
	recordsSvc := records.NewService(rp.records, usersSvc, grantsSvc, auditSvc, records.WithClock(now), records.WithLogger(log))
	filesSvc := attachments.NewService(rp.files, recordsSvc, blobs, auditSvc,
		attachments.WithClock(now),
		attachments.WithURLTTL(opts.DownloadURLTTL),
		attachments.WithMaxBytes(opts.MaxUploadBytes),
	)
	messagesSvc := messages.NewService(rp.messages, usersSvc, grantsSvc, messages.WithClock(now))

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Recover(log))

	var authOpts []middleware.AuthOption
	if opts.DebugHeaders {
		authOpts = append(authOpts, middleware.AllowDebugHeaders())
	}
	r.Use(middleware.AuthContext(opts.AuthVerifier, authOpts...))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Rutas por módulo
	r.Route("/api", func(r chi.Router) {
		users.RegisterRoutes(r, usersSvc)
		accessgrants.RegisterRoutes(r, grantsSvc)
		records.RegisterRoutes(r, recordsSvc)
		attachments.RegisterRoutes(r, filesSvc, blobHandler)
		messages.RegisterRoutes(r, messagesSvc)
		audit.RegisterRoutes(r, auditSvc)
	})

	return &App{
		Handler:  r,
		Users:    usersSvc,
		Grants:   grantsSvc,
		Records:  recordsSvc,
		Files:    filesSvc,
		Messages: messagesSvc,
		Audit:    auditSvc,
	}
}
