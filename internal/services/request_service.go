// Package services – RequestService
//
// This file implements RequestService, the application-level component that
// owns the lifecycle of service requests: public submission (with optional
// document uploads), public status checks by NIK, and operator updates with
// an append-only audit trail and queued WhatsApp notifications.
//
// Partial-failure semantics are deliberate and documented per method: the
// base request row may exist even when a later document upload failed (the
// error is surfaced, not hidden), and a notification enqueue failure is
// logged but never propagated, so the status update stays durable regardless
// of the messaging gateway.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// request identifiers and the transition being applied.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/notify"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
	"github.com/desa-tempursari/layanan-backend/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var requestsCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "service_requests_created_total",
		Help: "Total number of service requests created, by service type.",
	},
	[]string{"service_type"},
)

func init() {
	prometheus.MustRegister(requestsCreated)
}

// OperatorGate answers whether a principal holds the operator capability.
// Satisfied by AccessService.
type OperatorGate interface {
	IsOperator(ctx context.Context, userID string) bool
}

// DocumentUpload is one attachment included in a submission. Content is
// consumed exactly once during Create.
type DocumentUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// CreateRequestInput carries a public submission.
type CreateRequestInput struct {
	ServiceType string
	FullName    string
	NIK         string
	PhoneNumber string
	Documents   []DocumentUpload
}

// UpdateRequestInput carries an operator mutation. Nil fields are left
// untouched.
type UpdateRequestInput struct {
	Status        *domain.RequestStatus
	OperatorNotes *string
	CompletedAt   *time.Time
}

// RequestService coordinates request persistence, document storage, audit
// notes, and notification enqueueing.
type RequestService struct {
	DB    *gorm.DB
	Store storage.Store
	Gate  OperatorGate

	// MaxDocumentBytes caps each uploaded document. Defaults to 5 MiB.
	MaxDocumentBytes int64
	// AllowedDocumentTypes is the set of accepted media types.
	AllowedDocumentTypes map[string]bool
}

// NewRequestService constructs a RequestService with the default upload
// limits (5 MiB; pdf/jpeg/png).
func NewRequestService(db *gorm.DB, store storage.Store, gate OperatorGate) *RequestService {
	return &RequestService{
		DB:               db,
		Store:            store,
		Gate:             gate,
		MaxDocumentBytes: 5 << 20,
		AllowedDocumentTypes: map[string]bool{
			"application/pdf": true,
			"image/jpeg":      true,
			"image/jpg":       true,
			"image/png":       true,
		},
	}
}

// Create validates and persists a public submission.
//
// Steps: validate inputs (before any write), generate a request number,
// insert with status=pending and no owning user, and on a duplicate-number
// conflict retry exactly once with a timestamp-derived number. Documents, if
// any, are then uploaded concurrently and linked to the row; a failure at
// that stage is returned even though the base row already exists, so the
// partial state is surfaced rather than hidden.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*domain.ServiceRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("service.type", in.ServiceType)),
	)
	defer span.End()

	st := domain.ServiceType(strings.TrimSpace(in.ServiceType))
	if !st.Valid() {
		return nil, ErrInvalidServiceType
	}
	fullName := strings.TrimSpace(in.FullName)
	nik := strings.TrimSpace(in.NIK)
	phone := strings.TrimSpace(in.PhoneNumber)
	if fullName == "" || nik == "" || phone == "" {
		return nil, ErrMissingField
	}
	for _, doc := range in.Documents {
		if s.MaxDocumentBytes > 0 && doc.Size > s.MaxDocumentBytes {
			return nil, fmt.Errorf("%w: %s", ErrDocumentTooLarge, doc.Filename)
		}
		if len(s.AllowedDocumentTypes) > 0 && !s.AllowedDocumentTypes[strings.ToLower(doc.ContentType)] {
			return nil, fmt.Errorf("%w: %s", ErrDocumentType, doc.ContentType)
		}
	}

	now := time.Now().UTC()
	req := &domain.ServiceRequest{
		RequestNumber: nextRequestNumber(ctx, s.DB, now),
		ServiceType:   st,
		FullName:      fullName,
		NIK:           nik,
		PhoneNumber:   phone,
		Status:        domain.StatusPending,
	}

	if err := repo.CreateRequest(ctx, s.DB, req); err != nil {
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		// Concurrent submission computed the same number. Retry exactly once
		// with a timestamp-derived number instead of re-running the
		// generator query.
		req.ID = ""
		req.RequestNumber = fallbackRequestNumber(time.Now().UTC(), 6)
		if err := repo.CreateRequest(ctx, s.DB, req); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return nil, ErrDuplicateRequestNumber
			}
			return nil, err
		}
	}

	requestsCreated.WithLabelValues(string(st)).Inc()

	if len(in.Documents) > 0 {
		keys, err := s.uploadDocuments(ctx, req.ID, in.Documents)
		if err != nil {
			return nil, fmt.Errorf("request %s created but document upload failed: %w", req.RequestNumber, err)
		}
		if err := repo.SetDocuments(ctx, s.DB, req.ID, keys); err != nil {
			return nil, fmt.Errorf("request %s created but document linking failed: %w", req.RequestNumber, err)
		}
		req.Documents = keys
	}

	return req, nil
}

// uploadDocuments stores every attachment concurrently and returns the
// storage keys in the original attachment order.
func (s *RequestService) uploadDocuments(ctx context.Context, requestID string, docs []DocumentUpload) (domain.StringList, error) {
	submitter := fmt.Sprintf("anonymous_%d", time.Now().UnixMilli())
	keys := make(domain.StringList, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			ext := strings.TrimPrefix(path.Ext(doc.Filename), ".")
			if ext == "" {
				ext = "bin"
			}
			key := fmt.Sprintf("%s/%s/document_%d.%s", submitter, requestID, i, ext)
			stored, err := s.Store.Put(gctx, key, doc.ContentType, doc.Content)
			if err != nil {
				return err
			}
			keys[i] = stored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}

// StatusByNIK returns the most recently created request with the exact NIK,
// or (nil, nil) when the NIK has never filed one. Absence is an explicit
// result, not an error; this is a public, unauthenticated lookup.
func (s *RequestService) StatusByNIK(ctx context.Context, nik string) (*domain.ServiceRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "StatusByNIK")
	defer span.End()

	req, err := repo.LatestRequestByNIK(ctx, s.DB, strings.TrimSpace(nik))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// GetByID fetches a single request, mapping a missing row to
// ErrRequestNotFound.
func (s *RequestService) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// Notes returns the audit trail for a request, newest first.
func (s *RequestService) Notes(ctx context.Context, requestID string) ([]domain.OperatorNote, error) {
	return repo.ListNotes(ctx, s.DB, requestID)
}

// Update applies an operator mutation to a request.
//
// The service itself verifies the caller holds the operator capability (via
// the access gate) and rejects otherwise; it does not trust upstream role
// checks. Effects, in order: the request row is written (status, notes,
// completed_at, operator_id, updated_at); when the status changed or a note
// was supplied, exactly one audit note is appended capturing the old and new
// status; when the status changed, a notification is enqueued for the
// background dispatcher. The enqueue is best-effort: a failure there is
// logged and swallowed so the committed update is never rolled back or
// reported as failed.
func (s *RequestService) Update(ctx context.Context, operatorID, requestID string, in UpdateRequestInput) (*domain.ServiceRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("operator.id", operatorID),
		),
	)
	defer span.End()

	if s.Gate == nil || !s.Gate.IsOperator(ctx, operatorID) {
		return nil, ErrNotOperator
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	fields := map[string]any{
		"operator_id": operatorID,
		"updated_at":  time.Now().UTC(),
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if in.OperatorNotes != nil {
		fields["operator_notes"] = *in.OperatorNotes
	}
	if in.CompletedAt != nil {
		fields["completed_at"] = *in.CompletedAt
	}

	updated, err := repo.UpdateRequest(ctx, s.DB, requestID, fields)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	statusChanged := in.Status != nil && *in.Status != current.Status
	noteText := ""
	if in.OperatorNotes != nil {
		noteText = strings.TrimSpace(*in.OperatorNotes)
	}

	if statusChanged && current.Status.Terminal() {
		// Reopening a cancelled or completed request is allowed, but
		// flagged for review.
		log.Warn().
			Str("request_id", requestID).
			Str("request_number", current.RequestNumber).
			Str("old_status", string(current.Status)).
			Str("new_status", string(*in.Status)).
			Msg("status transition out of terminal state")
	}

	if statusChanged || noteText != "" {
		oldStatus := current.Status
		newStatus := current.Status
		if in.Status != nil {
			newStatus = *in.Status
		}
		note := noteText
		if note == "" {
			note = fmt.Sprintf("Status diubah dari %s ke %s", oldStatus, newStatus)
		}
		if _, err := repo.CreateNote(ctx, s.DB, requestID, operatorID, note, &oldStatus, &newStatus); err != nil {
			return nil, fmt.Errorf("request %s updated but audit note failed: %w", current.RequestNumber, err)
		}
	}

	if statusChanged {
		msg := notify.StatusMessage(current.RequestNumber, current.ServiceType.Label(), *in.Status, noteText)
		if _, err := repo.EnqueueNotification(ctx, s.DB, requestID, current.PhoneNumber, msg); err != nil {
			log.Error().
				Err(err).
				Str("request_id", requestID).
				Msg("failed to enqueue status notification")
		}
	}

	return updated, nil
}
