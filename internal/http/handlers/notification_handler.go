// WhatsApp gateway session HTTP handlers.
//
// This file exposes operator endpoints for managing the gateway session that
// carries outbound status notifications:
//   - GET  /notifications/session   (connectivity check)
//   - POST /notifications/session   (start the session)
//
// Both are behind the operator gate; gateway failures are reported in the
// response body rather than as 5xx, since a down gateway is an expected state
// the dashboard surfaces to the operator.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionStatus godoc
// @ID          sessionStatus
// @Summary     WhatsApp session status (operator)
// @Description Queries the notification gateway for the session connectivity state.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Operator user ID"
//
// @Success     200  {object}  notify.SessionResult
// @Failure     403  {object}  handlers.ErrorResponse  "Operator role required"
// @Router      /notifications/session [get]
func (h *Handlers) SessionStatus(c *gin.Context) {
	if _, okv := h.requireOperator(c); !okv {
		return
	}
	ok(c, http.StatusOK, h.waSvc.SessionStatus(c.Request.Context()))
}

// StartSession godoc
// @ID          startSession
// @Summary     Start the WhatsApp session (operator)
// @Description Asks the notification gateway to start the configured session.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Operator user ID"
//
// @Success     200  {object}  notify.SessionResult
// @Failure     403  {object}  handlers.ErrorResponse  "Operator role required"
// @Router      /notifications/session [post]
func (h *Handlers) StartSession(c *gin.Context) {
	if _, okv := h.requireOperator(c); !okv {
		return
	}
	ok(c, http.StatusOK, h.waSvc.StartSession(c.Request.Context()))
}
