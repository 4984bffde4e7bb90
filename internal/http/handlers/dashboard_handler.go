// Operator dashboard HTTP handlers.
//
// This file exposes the privileged endpoints behind the operator gate:
//   - GET  /dashboard/requests          (filtered listing)
//   - PUT  /dashboard/requests/{id}     (status / notes update)
//   - GET  /dashboard/stats             (aggregate counters)
//   - GET  /dashboard/requests/export   (CSV download)
//
// Every endpoint here verifies the caller through the access gate before
// touching data. The gate is fail-closed: a missing identity, an unknown role,
// or a slow role lookup all yield 403.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
	"github.com/desa-tempursari/layanan-backend/internal/services"
	"github.com/desa-tempursari/layanan-backend/internal/utils"
)

//
// DTOs
//

// UpdateRequestBody is the JSON payload for an operator update. All fields are
// optional; omitted fields are left untouched.
type UpdateRequestBody struct {
	// Status moves the request to a new lifecycle state.
	Status *string `json:"status" example:"on_process"`
	// OperatorNotes replaces the free-text note shown to the submitter.
	OperatorNotes *string `json:"operator_notes" example:"Dokumen sedang diverifikasi"`
}

//
// Helpers
//

// requireOperator enforces the access gate and returns the caller identity.
// It writes the 403 response itself; callers must return when ok is false.
func (h *Handlers) requireOperator(c *gin.Context) (string, bool) {
	uid := userID(c)
	if h.gate == nil || !h.gate.IsOperator(c.Request.Context(), uid) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "operator role required")
		return "", false
	}
	return uid, true
}

// parseFilters builds RequestFilters from the listing query parameters.
// Dates accept "2006-01-02"; date_to is widened to the end of its day so the
// range is inclusive.
func parseFilters(c *gin.Context) (repo.RequestFilters, error) {
	const maxLimit = 1000
	f := repo.RequestFilters{
		NIK:    strings.TrimSpace(c.Query("nik")),
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  utils.AtoiDefault(c.Query("limit"), 0),
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if v := strings.TrimSpace(c.Query("service_type")); v != "" {
		st := domain.ServiceType(v)
		if !st.Valid() {
			return f, fmt.Errorf("unknown service_type %q", v)
		}
		f.ServiceType = st
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		st := domain.RequestStatus(v)
		if !st.Valid() {
			return f, fmt.Errorf("unknown status %q", v)
		}
		f.Status = st
	}
	var err error
	if f.DateFrom, err = parseDateParam(c.Query("date_from"), false); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDateParam(c.Query("date_to"), true); err != nil {
		return f, err
	}
	return f, nil
}

// parseDateParam parses an optional "2006-01-02" query value. endOfDay shifts
// the result to 23:59:59.999 so upper bounds are inclusive.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	t = t.UTC()
	return &t, nil
}

//
// Handlers
//

// ListRequests godoc
// @ID          listRequests
// @Summary     List service requests (operator)
// @Description Returns the filtered request listing, newest first.
// @Tags        Dashboard
// @Produce     json
//
// @Param       X-User-ID     header  string  true   "Operator user ID"
// @Param       nik           query   string  false  "NIK substring filter"
// @Param       service_type  query   string  false  "Service type filter"
// @Param       status        query   string  false  "Status filter"
// @Param       date_from     query   string  false  "Created-at lower bound (YYYY-MM-DD)"
// @Param       date_to       query   string  false  "Created-at upper bound (YYYY-MM-DD, inclusive)"
// @Param       search        query   string  false  "Name or request number substring"
// @Param       limit         query   int     false  "Result cap"  maximum(1000)
//
// @Success     200  {array}   domain.ServiceRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Operator role required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /dashboard/requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	if _, okv := h.requireOperator(c); !okv {
		return
	}
	f, err := parseFilters(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	items, err := h.dashSvc.List(c.Request.Context(), f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.ServiceRequest{}
	}
	ok(c, http.StatusOK, items)
}

// UpdateRequest godoc
// @ID          updateRequest
// @Summary     Update a service request (operator)
// @Description Applies a status change and/or operator note. A status change appends an audit note and queues a WhatsApp notification for the submitter.
// @Tags        Dashboard
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Operator user ID"
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateRequestBody  true  "Update payload"
//
// @Success     200  {object}  domain.ServiceRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Operator role required"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /dashboard/requests/{id} [put]
func (h *Handlers) UpdateRequest(c *gin.Context) {
	uid, okv := h.requireOperator(c)
	if !okv {
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var body UpdateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if body.Status == nil && body.OperatorNotes == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nothing to update")
		return
	}

	in := services.UpdateRequestInput{OperatorNotes: body.OperatorNotes}
	if body.Status != nil {
		st := domain.RequestStatus(strings.TrimSpace(*body.Status))
		in.Status = &st
		if st == domain.StatusCompleted {
			now := time.Now().UTC()
			in.CompletedAt = &now
		}
	}

	req, err := h.reqSvc.Update(c.Request.Context(), uid, id, in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotOperator):
			fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case errors.Is(err, services.ErrInvalidStatus):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrRequestNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, req)
}

// Stats godoc
// @ID          dashboardStats
// @Summary     Dashboard statistics (operator)
// @Description Returns aggregate request counters, optionally bounded to a date range. Status buckets always sum to the total.
// @Tags        Dashboard
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Operator user ID"
// @Param       date_from  query   string  false  "Lower bound (YYYY-MM-DD)"
// @Param       date_to    query   string  false  "Upper bound (YYYY-MM-DD, inclusive)"
//
// @Success     200  {object}  services.DashboardStats
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Operator role required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /dashboard/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	if _, okv := h.requireOperator(c); !okv {
		return
	}

	from, err := parseDateParam(c.Query("date_from"), false)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(c.Query("date_to"), true)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	stats, err := h.dashSvc.Stats(c.Request.Context(), from, to)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// ExportRequests godoc
// @ID          exportRequests
// @Summary     Export service requests as CSV (operator)
// @Description Streams the filtered listing as a CSV attachment with Indonesian headers and labels.
// @Tags        Dashboard
// @Produce     text/csv
//
// @Param       X-User-ID     header  string  true   "Operator user ID"
// @Param       nik           query   string  false  "NIK substring filter"
// @Param       service_type  query   string  false  "Service type filter"
// @Param       status        query   string  false  "Status filter"
// @Param       date_from     query   string  false  "Created-at lower bound (YYYY-MM-DD)"
// @Param       date_to       query   string  false  "Created-at upper bound (YYYY-MM-DD, inclusive)"
//
// @Success     200  {string}  string  "CSV payload"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Operator role required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /dashboard/requests/export [get]
func (h *Handlers) ExportRequests(c *gin.Context) {
	if _, okv := h.requireOperator(c); !okv {
		return
	}
	f, err := parseFilters(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	csv, err := h.dashSvc.ExportCSV(c.Request.Context(), f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		return
	}

	filename := fmt.Sprintf("permohonan-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}
