// Service request HTTP handlers.
//
// This file exposes REST endpoints for the public request surface:
//   - POST   /requests             (submit, multipart or JSON, idempotent)
//   - GET    /requests/status      (latest request by NIK)
//   - GET    /requests/{id}/notes  (audit trail)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including idempotent replays).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/http/middleware"
	"github.com/desa-tempursari/layanan-backend/internal/notify"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
	"github.com/desa-tempursari/layanan-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// RequestService defines request lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RequestService interface {
	// Create validates and persists a public submission.
	Create(ctx context.Context, in services.CreateRequestInput) (*domain.ServiceRequest, error)
	// StatusByNIK returns the most recent request for a NIK, or (nil, nil).
	StatusByNIK(ctx context.Context, nik string) (*domain.ServiceRequest, error)
	// GetByID fetches a single request.
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	// Notes returns the audit trail for a request, newest first.
	Notes(ctx context.Context, requestID string) ([]domain.OperatorNote, error)
	// Update applies an operator mutation.
	Update(ctx context.Context, operatorID, requestID string, in services.UpdateRequestInput) (*domain.ServiceRequest, error)
}

// DashboardService defines the operator aggregate and export operations.
type DashboardService interface {
	// Stats returns aggregate counters for an optional date range.
	Stats(ctx context.Context, from, to *time.Time) (*services.DashboardStats, error)
	// List returns the filtered request listing, newest first.
	List(ctx context.Context, f repo.RequestFilters) ([]domain.ServiceRequest, error)
	// ExportCSV serializes the filtered listing.
	ExportCSV(ctx context.Context, f repo.RequestFilters) (string, error)
}

// SessionService defines WhatsApp gateway session operations.
type SessionService interface {
	// SessionStatus queries the connectivity state of the gateway session.
	SessionStatus(ctx context.Context) notify.SessionResult
	// StartSession asks the gateway to start the session.
	StartSession(ctx context.Context) notify.SessionResult
}

// OperatorGate answers whether a principal holds the operator capability.
type OperatorGate interface {
	IsOperator(ctx context.Context, userID string) bool
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for requests, the operator dashboard, and
// gateway session management. It depends on abstract service interfaces to
// keep transport concerns separate from business logic.
type Handlers struct {
	reqSvc  RequestService
	dashSvc DashboardService
	gate    OperatorGate
	waSvc   SessionService
	idemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
// idemTTL bounds how long a stored submission may be replayed via the
// Idempotency-Key header.
func New(reqSvc RequestService, dashSvc DashboardService, gate OperatorGate, waSvc SessionService, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{reqSvc: reqSvc, dashSvc: dashSvc, gate: gate, waSvc: waSvc, idemTTL: idemTTL}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header (tests use
// it). There is no default identity: an empty result fails the operator gate.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// DTOs
//

// StatusResponse wraps a status lookup. Found is false when the NIK has never
// filed a request; absence is not an error.
type StatusResponse struct {
	Found   bool                   `json:"found"`
	Request *domain.ServiceRequest `json:"request,omitempty"`
}

// CreateRequestBody is the JSON form of a submission, for clients that do not
// attach documents. Multipart clients use form fields of the same names.
type CreateRequestBody struct {
	ServiceType string `json:"service_type" example:"surat_keterangan_domisili"`
	FullName    string `json:"full_name"    example:"Siti Rahayu"`
	NIK         string `json:"nik"          example:"3310112233445566"`
	PhoneNumber string `json:"phone_number" example:"081234567890"`
}

//
// Handlers
//

// CreateRequest godoc
// @ID          createRequest
// @Summary     Submit a service request
// @Description Creates a request with status pending and returns the resource, including its request number. Accepts multipart form data with optional document attachments, or a plain JSON body without documents.
// @Tags        Requests
// @Accept      mpfd
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header    string  false "Deduplication key for retried submissions"
// @Param       service_type     formData  string  true  "Service type"  example(surat_keterangan_domisili)
// @Param       full_name        formData  string  true  "Submitter full name"
// @Param       nik              formData  string  true  "Submitter NIK (16 digits)"
// @Param       phone_number     formData  string  true  "Submitter phone number"
// @Param       documents        formData  file    false "Supporting documents (pdf/jpg/png, max 5 MiB each)"
//
// @Success     201  {object}  domain.ServiceRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Request number conflict"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	ctx := c.Request.Context()

	var in services.CreateRequestInput
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var body CreateRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
		in = services.CreateRequestInput{
			ServiceType: body.ServiceType,
			FullName:    body.FullName,
			NIK:         body.NIK,
			PhoneNumber: body.PhoneNumber,
		}
	} else {
		in = services.CreateRequestInput{
			ServiceType: c.PostForm("service_type"),
			FullName:    c.PostForm("full_name"),
			NIK:         c.PostForm("nik"),
			PhoneNumber: c.PostForm("phone_number"),
		}
		if form, err := c.MultipartForm(); err == nil && form != nil {
			for _, fh := range form.File["documents"] {
				f, oerr := fh.Open()
				if oerr != nil {
					fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable document: "+fh.Filename)
					return
				}
				defer f.Close()
				in.Documents = append(in.Documents, services.DocumentUpload{
					Filename:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        fh.Size,
					Content:     f,
				})
			}
		}
	}
	nik := strings.TrimSpace(in.NIK)

	// Replay: a previously stored submission for (nik, route, key) is served
	// back instead of creating a second request.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		if db := h.requestDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, nik, c.FullPath(), key, time.Now().UTC()); err == nil {
				if prior, perr := h.reqSvc.GetByID(ctx, rec.RequestID); perr == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, rec.Status, prior)
					return
				}
			}
		}
	}

	req, err := h.reqSvc.Create(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidServiceType),
			errors.Is(err, services.ErrMissingField),
			errors.Is(err, services.ErrDocumentTooLarge),
			errors.Is(err, services.ErrDocumentType):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrDuplicateRequestNumber):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
		}
		return
	}

	// Store the idempotency record best-effort; a failure here must not fail
	// the successful submission.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		if db := h.requestDB(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, nik, c.FullPath(), key, req.ID, http.StatusCreated, h.idemTTL)
		}
	}

	ok(c, http.StatusCreated, req)
}

// CheckStatus godoc
// @ID          checkStatus
// @Summary     Check request status by NIK
// @Description Returns the most recently created request for the given NIK. A NIK with no requests yields found=false, not an error.
// @Tags        Requests
// @Produce     json
//
// @Param       nik  query  string  true  "Submitter NIK (exact match)"
//
// @Success     200  {object}  handlers.StatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/status [get]
func (h *Handlers) CheckStatus(c *gin.Context) {
	nik := strings.TrimSpace(c.Query("nik"))
	if nik == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nik query parameter required")
		return
	}

	req, err := h.reqSvc.StatusByNIK(c.Request.Context(), nik)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, StatusResponse{Found: req != nil, Request: req})
}

// ListNotes godoc
// @ID          listNotes
// @Summary     List the audit trail of a request
// @Description Returns the operator notes for a request, newest first.
// @Tags        Requests
// @Produce     json
//
// @Param       id  path  string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {array}   domain.OperatorNote
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/notes [get]
func (h *Handlers) ListNotes(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.reqSvc.GetByID(ctx, id); err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	notes, err := h.reqSvc.Notes(ctx, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if notes == nil {
		notes = []domain.OperatorNote{}
	}
	ok(c, http.StatusOK, notes)
}

// requestDB surfaces the underlying *gorm.DB for idempotency bookkeeping
// (best effort; nil when the service is a test double).
func (h *Handlers) requestDB() *gorm.DB {
	if svc, okv := h.reqSvc.(*services.RequestService); okv {
		return svc.DB
	}
	return nil
}
