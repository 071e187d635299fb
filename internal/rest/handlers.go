package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/models"
)

type handlers struct {
	svc *meeting.Service
}

func (h *handlers) scheduleMeeting(c *gin.Context) {
	var draft models.MeetingDraft
	if !bind(c, &draft) {
		return
	}
	m, err := h.svc.Lifecycle.Schedule(c.Request.Context(), actorOf(c), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *handlers) getMeeting(c *gin.Context) {
	m, err := h.svc.Lifecycle.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handlers) listMeetings(c *gin.Context) {
	status := models.MeetingStatus(strings.ToUpper(c.Query("status")))
	meetings, err := h.svc.Lifecycle.List(c.Request.Context(), actorOf(c), c.Param("id"), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// transition returns the handler of one lifecycle step.
func transition(step func(*gin.Context, models.Actor, string) (*models.Meeting, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := step(c, actorOf(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func (h *handlers) startMeeting(c *gin.Context, actor models.Actor, id string) (*models.Meeting, error) {
	return h.svc.Lifecycle.Start(c.Request.Context(), actor, id)
}

func (h *handlers) cancelMeeting(c *gin.Context, actor models.Actor, id string) (*models.Meeting, error) {
	return h.svc.Lifecycle.Cancel(c.Request.Context(), actor, id)
}

func (h *handlers) completeMeeting(c *gin.Context) {
	m, summary, err := h.svc.Lifecycle.Complete(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": m, "summary": summary})
}

func (h *handlers) deleteMeeting(c *gin.Context) {
	if err := h.svc.Lifecycle.DeleteMeetingCascade(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) updateNarrative(c *gin.Context) {
	var narrative models.Narrative
	if !bind(c, &narrative) {
		return
	}
	m, err := h.svc.Lifecycle.UpdateNarrative(c.Request.Context(), actorOf(c), c.Param("id"), narrative)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handlers) recordAttendance(c *gin.Context) {
	var body struct {
		Records []meeting.AttendanceInput `json:"records"`
	}
	if !bind(c, &body) {
		return
	}
	ctx, actor, id := c.Request.Context(), actorOf(c), c.Param("id")
	records, err := h.svc.Attendance.Record(ctx, actor, id, body.Records)
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := h.svc.Attendance.Stats(ctx, actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "stats": stats})
}

func (h *handlers) getAttendance(c *gin.Context) {
	ctx, actor, id := c.Request.Context(), actorOf(c), c.Param("id")
	records, err := h.svc.Attendance.Records(ctx, actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := h.svc.Attendance.Stats(ctx, actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "stats": stats})
}

// appendEntry returns the handler of one recording operation whose input
// is the JSON body.
func appendEntry[In any](record func(*gin.Context, models.Actor, string, In) (*meeting.AppendResult, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if !bind(c, &in) {
			return
		}
		res, err := record(c, actorOf(c), c.Param("id"), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

func (h *handlers) recordSavings(c *gin.Context, actor models.Actor, id string, in meeting.SavingsInput) (*meeting.AppendResult, error) {
	return h.svc.Ledger.RecordSavings(c.Request.Context(), actor, id, in)
}

func (h *handlers) recordFine(c *gin.Context, actor models.Actor, id string, in meeting.FineInput) (*meeting.AppendResult, error) {
	return h.svc.Ledger.RecordFine(c.Request.Context(), actor, id, in)
}

func (h *handlers) recordLoanRepayment(c *gin.Context, actor models.Actor, id string, in meeting.LoanRepaymentInput) (*meeting.AppendResult, error) {
	return h.svc.Ledger.RecordLoanRepayment(c.Request.Context(), actor, id, in)
}

func (h *handlers) recordLoanDisbursement(c *gin.Context, actor models.Actor, id string, in meeting.LoanDisbursementInput) (*meeting.AppendResult, error) {
	return h.svc.Ledger.RecordLoanDisbursement(c.Request.Context(), actor, id, in)
}

func (h *handlers) createTraining(c *gin.Context, actor models.Actor, id string, in meeting.TrainingInput) (*meeting.AppendResult, error) {
	return h.svc.Ledger.CreateTraining(c.Request.Context(), actor, id, in)
}

func (h *handlers) createVoting(c *gin.Context, actor models.Actor, id string, in meeting.VotingInput) (*meeting.AppendResult, error) {
	return h.svc.Ledger.CreateVoting(c.Request.Context(), actor, id, in)
}

func (h *handlers) submitRemotePayment(c *gin.Context, actor models.Actor, id string, in meeting.RemotePaymentInput) (*meeting.AppendResult, error) {
	return h.svc.Verifier.Submit(c.Request.Context(), actor, id, in)
}

func (h *handlers) recordTrainingAttendance(c *gin.Context) {
	var body struct {
		Rows []meeting.TrainingAttendanceInput `json:"rows"`
	}
	if !bind(c, &body) {
		return
	}
	rows, err := h.svc.Ledger.RecordTrainingAttendance(c.Request.Context(), actorOf(c), c.Param("id"), body.Rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows})
}

func (h *handlers) castVotes(c *gin.Context) {
	var body struct {
		Votes []meeting.VoteInput `json:"votes"`
	}
	if !bind(c, &body) {
		return
	}
	outcome, err := h.svc.Ledger.CastVotes(c.Request.Context(), actorOf(c), c.Param("id"), body.Votes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *handlers) votingResult(c *gin.Context) {
	tally, err := h.svc.Ledger.VotingResult(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

func (h *handlers) listEntries(c *gin.Context) {
	filter := models.EntryFilter{
		Kind:     models.EntryKind(strings.ToUpper(c.Query("kind"))),
		Source:   models.EntrySource(strings.ToUpper(c.Query("source"))),
		ParentID: c.Query("parent_id"),
	}
	entries, err := h.svc.Ledger.List(c.Request.Context(), actorOf(c), c.Param("id"), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *handlers) amendEntry(c *gin.Context) {
	var patch meeting.EntryPatch
	if !bind(c, &patch) {
		return
	}
	entry, err := h.svc.Ledger.Amend(c.Request.Context(), actorOf(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *handlers) attachDocuments(c *gin.Context) {
	var body struct {
		DocumentIDs []string `json:"document_ids"`
	}
	if !bind(c, &body) {
		return
	}
	entry, err := h.svc.Ledger.AttachDocuments(c.Request.Context(), actorOf(c), c.Param("id"), body.DocumentIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *handlers) verifyRemotePayment(c *gin.Context) {
	var body struct {
		Action models.VerifyAction `json:"action"`
		Notes  string              `json:"notes"`
	}
	if !bind(c, &body) {
		return
	}
	action := models.VerifyAction(strings.ToUpper(string(body.Action)))
	entry, err := h.svc.Verifier.Verify(c.Request.Context(), actorOf(c), c.Param("id"), action, body.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *handlers) listRemotePayments(c *gin.Context) {
	listing, err := h.svc.Verifier.List(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *handlers) getSummary(c *gin.Context) {
	summary, err := h.svc.Lifecycle.Summary(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handlers) summaryVersions(c *gin.Context) {
	versions, err := h.svc.Lifecycle.SummaryVersions(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *handlers) regenerateSummary(c *gin.Context) {
	summary, err := h.svc.Lifecycle.RegenerateSummary(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handlers) auditTrail(c *gin.Context) {
	entries, err := h.svc.Lifecycle.AuditTrail(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *handlers) groupRollup(c *gin.Context) {
	rollup, err := h.svc.Lifecycle.Rollup(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rollup)
}

func (h *handlers) memberSavings(c *gin.Context) {
	savings, err := h.svc.Ledger.Savings(c.Request.Context(), actorOf(c), c.Param("id"), c.Query("member_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savings": savings})
}
