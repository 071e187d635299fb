// Package rest exposes the meeting workflow as a JSON HTTP API.
package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/savingsgroup/internal/auth"
	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/metrics"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the gin engine serving every REST route. All routes
// except /healthz require a bearer token.
func NewRouter(svc *meeting.Service, jwtManager *auth.JWTManager, m *metrics.Metrics, db Pinger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(m))

	r.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{svc: svc}
	api := r.Group("")
	api.Use(jwtAuth(jwtManager))

	api.POST("/meetings", h.scheduleMeeting)
	api.GET("/meetings/:id", h.getMeeting)
	api.DELETE("/meetings/:id", h.deleteMeeting)
	api.PUT("/meetings/:id/narrative", h.updateNarrative)
	api.POST("/meetings/:id/start", transition(h.startMeeting))
	api.POST("/meetings/:id/complete", h.completeMeeting)
	api.POST("/meetings/:id/cancel", transition(h.cancelMeeting))
	api.GET("/meetings/:id/audit", h.auditTrail)

	api.POST("/meetings/:id/attendance", h.recordAttendance)
	api.GET("/meetings/:id/attendance", h.getAttendance)

	api.POST("/meetings/:id/savings", appendEntry(h.recordSavings))
	api.POST("/meetings/:id/fines", appendEntry(h.recordFine))
	api.POST("/meetings/:id/loan-repayments", appendEntry(h.recordLoanRepayment))
	api.POST("/meetings/:id/loan-disbursements", appendEntry(h.recordLoanDisbursement))
	api.POST("/meetings/:id/training", appendEntry(h.createTraining))
	api.POST("/meetings/:id/voting", appendEntry(h.createVoting))
	api.GET("/meetings/:id/entries", h.listEntries)
	api.POST("/training/:id/attendance", h.recordTrainingAttendance)
	api.POST("/voting/:id/votes", h.castVotes)
	api.GET("/voting/:id", h.votingResult)
	api.PATCH("/entries/:id", h.amendEntry)
	api.POST("/entries/:id/documents", h.attachDocuments)

	api.POST("/meetings/:id/remote-payments", appendEntry(h.submitRemotePayment))
	api.GET("/meetings/:id/remote-payments", h.listRemotePayments)
	api.POST("/remote-payments/:id/verify", h.verifyRemotePayment)

	api.GET("/meetings/:id/summary", h.getSummary)
	api.GET("/meetings/:id/summary/versions", h.summaryVersions)
	api.POST("/meetings/:id/summary/regenerate", h.regenerateSummary)

	api.GET("/groups/:id/meetings", h.listMeetings)
	api.GET("/groups/:id/rollup", h.groupRollup)
	api.GET("/groups/:id/savings", h.memberSavings)

	return r
}
