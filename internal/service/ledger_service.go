package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/models"
)

// LedgerService implements the Connect LedgerService: in-meeting recording
// of money movements, training and voting sessions.
type LedgerService struct {
	ledger *meeting.Ledger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(svc *meeting.Service) *LedgerService {
	return &LedgerService{ledger: svc.Ledger}
}

func (s *LedgerService) RecordSavings(ctx context.Context, req *connect.Request[RecordSavingsRequest]) (*connect.Response[meeting.AppendResult], error) {
	slog.InfoContext(ctx, "RecordSavings request received",
		"meeting_id", req.Msg.MeetingID,
		"member_id", req.Msg.MemberID,
		"withdrawal", req.Msg.Withdrawal,
	)
	return serve(ctx, "RecordSavings", req, func(actor models.Actor, msg *RecordSavingsRequest) (*meeting.AppendResult, error) {
		return s.ledger.RecordSavings(ctx, actor, msg.MeetingID, msg.SavingsInput)
	})
}

func (s *LedgerService) RecordFine(ctx context.Context, req *connect.Request[RecordFineRequest]) (*connect.Response[meeting.AppendResult], error) {
	slog.InfoContext(ctx, "RecordFine request received",
		"meeting_id", req.Msg.MeetingID,
		"member_id", req.Msg.MemberID,
	)
	return serve(ctx, "RecordFine", req, func(actor models.Actor, msg *RecordFineRequest) (*meeting.AppendResult, error) {
		return s.ledger.RecordFine(ctx, actor, msg.MeetingID, msg.FineInput)
	})
}

func (s *LedgerService) RecordLoanRepayment(ctx context.Context, req *connect.Request[RecordLoanRepaymentRequest]) (*connect.Response[meeting.AppendResult], error) {
	slog.InfoContext(ctx, "RecordLoanRepayment request received",
		"meeting_id", req.Msg.MeetingID,
		"member_id", req.Msg.MemberID,
		"loan_id", req.Msg.LoanID,
	)
	return serve(ctx, "RecordLoanRepayment", req, func(actor models.Actor, msg *RecordLoanRepaymentRequest) (*meeting.AppendResult, error) {
		return s.ledger.RecordLoanRepayment(ctx, actor, msg.MeetingID, msg.LoanRepaymentInput)
	})
}

func (s *LedgerService) RecordLoanDisbursement(ctx context.Context, req *connect.Request[RecordLoanDisbursementRequest]) (*connect.Response[meeting.AppendResult], error) {
	slog.InfoContext(ctx, "RecordLoanDisbursement request received",
		"meeting_id", req.Msg.MeetingID,
		"member_id", req.Msg.MemberID,
		"loan_id", req.Msg.LoanID,
	)
	return serve(ctx, "RecordLoanDisbursement", req, func(actor models.Actor, msg *RecordLoanDisbursementRequest) (*meeting.AppendResult, error) {
		return s.ledger.RecordLoanDisbursement(ctx, actor, msg.MeetingID, msg.LoanDisbursementInput)
	})
}

func (s *LedgerService) CreateTraining(ctx context.Context, req *connect.Request[CreateTrainingRequest]) (*connect.Response[meeting.AppendResult], error) {
	return serve(ctx, "CreateTraining", req, func(actor models.Actor, msg *CreateTrainingRequest) (*meeting.AppendResult, error) {
		return s.ledger.CreateTraining(ctx, actor, msg.MeetingID, msg.TrainingInput)
	})
}

func (s *LedgerService) RecordTrainingAttendance(ctx context.Context, req *connect.Request[TrainingAttendanceRequest]) (*connect.Response[EntriesResponse], error) {
	return serve(ctx, "RecordTrainingAttendance", req, func(actor models.Actor, msg *TrainingAttendanceRequest) (*EntriesResponse, error) {
		rows, err := s.ledger.RecordTrainingAttendance(ctx, actor, msg.TrainingID, msg.Rows)
		if err != nil {
			return nil, err
		}
		return &EntriesResponse{Entries: rows}, nil
	})
}

func (s *LedgerService) CreateVoting(ctx context.Context, req *connect.Request[CreateVotingRequest]) (*connect.Response[meeting.AppendResult], error) {
	return serve(ctx, "CreateVoting", req, func(actor models.Actor, msg *CreateVotingRequest) (*meeting.AppendResult, error) {
		return s.ledger.CreateVoting(ctx, actor, msg.MeetingID, msg.VotingInput)
	})
}

// CastVotes records member votes and returns the recomputed tally.
func (s *LedgerService) CastVotes(ctx context.Context, req *connect.Request[CastVotesRequest]) (*connect.Response[meeting.VoteOutcome], error) {
	slog.InfoContext(ctx, "CastVotes request received",
		"voting_id", req.Msg.VotingID,
		"votes", len(req.Msg.Votes),
	)
	return serve(ctx, "CastVotes", req, func(actor models.Actor, msg *CastVotesRequest) (*meeting.VoteOutcome, error) {
		return s.ledger.CastVotes(ctx, actor, msg.VotingID, msg.Votes)
	})
}

func (s *LedgerService) GetVotingResult(ctx context.Context, req *connect.Request[EntryRequest]) (*connect.Response[VotingResultResponse], error) {
	return serve(ctx, "GetVotingResult", req, func(actor models.Actor, msg *EntryRequest) (*VotingResultResponse, error) {
		tally, err := s.ledger.VotingResult(ctx, actor, msg.EntryID)
		if err != nil {
			return nil, err
		}
		return &VotingResultResponse{Tally: tally}, nil
	})
}

// ListEntries returns the ledger of a meeting, optionally filtered.
func (s *LedgerService) ListEntries(ctx context.Context, req *connect.Request[ListEntriesRequest]) (*connect.Response[EntriesResponse], error) {
	return serve(ctx, "ListEntries", req, func(actor models.Actor, msg *ListEntriesRequest) (*EntriesResponse, error) {
		entries, err := s.ledger.List(ctx, actor, msg.MeetingID, msg.EntryFilter)
		if err != nil {
			return nil, err
		}
		return &EntriesResponse{Entries: entries}, nil
	})
}

// ListMemberSavings returns savings balances per member and saving type.
func (s *LedgerService) ListMemberSavings(ctx context.Context, req *connect.Request[MemberSavingsRequest]) (*connect.Response[MemberSavingsResponse], error) {
	return serve(ctx, "ListMemberSavings", req, func(actor models.Actor, msg *MemberSavingsRequest) (*MemberSavingsResponse, error) {
		savings, err := s.ledger.Savings(ctx, actor, msg.GroupID, msg.MemberID)
		if err != nil {
			return nil, err
		}
		return &MemberSavingsResponse{Savings: savings}, nil
	})
}

// AmendEntry corrects a verified monetary entry or edits a session header,
// leaving an audit row.
func (s *LedgerService) AmendEntry(ctx context.Context, req *connect.Request[AmendEntryRequest]) (*connect.Response[EntryResponse], error) {
	slog.InfoContext(ctx, "AmendEntry request received", "entry_id", req.Msg.EntryID)
	return serve(ctx, "AmendEntry", req, func(actor models.Actor, msg *AmendEntryRequest) (*EntryResponse, error) {
		entry, err := s.ledger.Amend(ctx, actor, msg.EntryID, msg.EntryPatch)
		if err != nil {
			return nil, err
		}
		return &EntryResponse{Entry: entry}, nil
	})
}

func (s *LedgerService) AttachDocuments(ctx context.Context, req *connect.Request[AttachDocumentsRequest]) (*connect.Response[EntryResponse], error) {
	return serve(ctx, "AttachDocuments", req, func(actor models.Actor, msg *AttachDocumentsRequest) (*EntryResponse, error) {
		entry, err := s.ledger.AttachDocuments(ctx, actor, msg.EntryID, msg.DocumentIDs)
		if err != nil {
			return nil, err
		}
		return &EntryResponse{Entry: entry}, nil
	})
}
