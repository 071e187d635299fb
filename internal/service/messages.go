package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/models"
)

// Request and response messages of the RPC services. Embedded inputs are
// flattened into the message by encoding/json.

type MeetingRequest struct {
	MeetingID string `json:"meeting_id"`
}

type GroupRequest struct {
	GroupID string `json:"group_id"`
}

type EntryRequest struct {
	EntryID string `json:"entry_id"`
}

type MeetingResponse struct {
	Meeting *models.Meeting `json:"meeting"`
}

type ListMeetingsRequest struct {
	GroupID string               `json:"group_id"`
	Status  models.MeetingStatus `json:"status,omitempty"`
}

type ListMeetingsResponse struct {
	Meetings []models.Meeting `json:"meetings"`
}

type CompleteMeetingResponse struct {
	Meeting *models.Meeting        `json:"meeting"`
	Summary *models.MeetingSummary `json:"summary"`
}

type DeleteMeetingResponse struct{}

type UpdateNarrativeRequest struct {
	MeetingID string `json:"meeting_id"`
	models.Narrative
}

type SummaryResponse struct {
	Summary *models.MeetingSummary `json:"summary"`
}

type SummaryVersionsResponse struct {
	Versions []models.MeetingSummary `json:"versions"`
}

type RollupResponse struct {
	Rollup *models.GroupRollup `json:"rollup"`
}

type AuditTrailResponse struct {
	Entries []models.AuditEntry `json:"entries"`
}

type RecordAttendanceRequest struct {
	MeetingID string                    `json:"meeting_id"`
	Records   []meeting.AttendanceInput `json:"records"`
}

type AttendanceResponse struct {
	Records []models.AttendanceRecord `json:"records"`
	Stats   *models.AttendanceStats   `json:"stats"`
}

type RecordSavingsRequest struct {
	MeetingID string `json:"meeting_id"`
	meeting.SavingsInput
}

type RecordFineRequest struct {
	MeetingID string `json:"meeting_id"`
	meeting.FineInput
}

type RecordLoanRepaymentRequest struct {
	MeetingID string `json:"meeting_id"`
	meeting.LoanRepaymentInput
}

type RecordLoanDisbursementRequest struct {
	MeetingID string `json:"meeting_id"`
	meeting.LoanDisbursementInput
}

type CreateTrainingRequest struct {
	MeetingID string `json:"meeting_id"`
	meeting.TrainingInput
}

type CreateVotingRequest struct {
	MeetingID string `json:"meeting_id"`
	meeting.VotingInput
}

type TrainingAttendanceRequest struct {
	TrainingID string                            `json:"training_id"`
	Rows       []meeting.TrainingAttendanceInput `json:"rows"`
}

type CastVotesRequest struct {
	VotingID string              `json:"voting_id"`
	Votes    []meeting.VoteInput `json:"votes"`
}

type ListEntriesRequest struct {
	MeetingID string `json:"meeting_id"`
	models.EntryFilter
}

type EntriesResponse struct {
	Entries []models.LedgerEntry `json:"entries"`
}

type EntryResponse struct {
	Entry *models.LedgerEntry `json:"entry"`
}

type VotingResultResponse struct {
	Tally *models.VoteTally `json:"tally"`
}

type AmendEntryRequest struct {
	EntryID string `json:"entry_id"`
	meeting.EntryPatch
}

type MemberSavingsRequest struct {
	GroupID  string `json:"group_id"`
	MemberID string `json:"member_id,omitempty"`
}

type MemberSavingsResponse struct {
	Savings []models.MemberSaving `json:"savings"`
}

type AttachDocumentsRequest struct {
	EntryID     string   `json:"entry_id"`
	DocumentIDs []string `json:"document_ids"`
}

type SubmitRemotePaymentRequest struct {
	MeetingID string `json:"meeting_id"`
	meeting.RemotePaymentInput
}

type VerifyRemotePaymentRequest struct {
	EntryID string              `json:"entry_id"`
	Action  models.VerifyAction `json:"action"`
	Notes   string              `json:"notes,omitempty"`
}

type CreateGroupRequest struct {
	Name             string              `json:"name"`
	QuorumPercentage decimal.NullDecimal `json:"quorum_percentage"`
}

type UpdateGroupRequest struct {
	GroupID          string              `json:"group_id"`
	Name             string              `json:"name"`
	QuorumPercentage decimal.NullDecimal `json:"quorum_percentage"`
}

type GroupResponse struct {
	Group *models.Group `json:"group"`
}

type CreateMemberRequest struct {
	GroupID string      `json:"group_id"`
	UserID  string      `json:"user_id,omitempty"`
	Name    string      `json:"name"`
	Phone   string      `json:"phone,omitempty"`
	Role    models.Role `json:"role,omitempty"`
}

type MemberResponse struct {
	Member *models.Member `json:"member"`
}

type MembersResponse struct {
	Members []models.Member `json:"members"`
}

type CreateSavingTypeRequest struct {
	GroupID          string              `json:"group_id"`
	Name             string              `json:"name"`
	Code             string              `json:"code"`
	MinimumAmount    decimal.Decimal     `json:"minimum_amount"`
	MaximumAmount    decimal.NullDecimal `json:"maximum_amount"`
	AllowsWithdrawal bool                `json:"allows_withdrawal"`
}

type SavingTypeResponse struct {
	SavingType *models.SavingType `json:"saving_type"`
}

type SavingTypesResponse struct {
	SavingTypes []models.SavingType `json:"saving_types"`
}
