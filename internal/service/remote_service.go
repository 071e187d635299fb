package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/models"
)

// RemotePaymentService implements the Connect RemotePaymentService.
type RemotePaymentService struct {
	verifier *meeting.Verifier
}

// NewRemotePaymentService creates a new RemotePaymentService.
func NewRemotePaymentService(svc *meeting.Service) *RemotePaymentService {
	return &RemotePaymentService{verifier: svc.Verifier}
}

// SubmitRemotePayment records the caller's own mobile-money deposit as PENDING.
func (s *RemotePaymentService) SubmitRemotePayment(ctx context.Context, req *connect.Request[SubmitRemotePaymentRequest]) (*connect.Response[meeting.AppendResult], error) {
	slog.InfoContext(ctx, "SubmitRemotePayment request received",
		"meeting_id", req.Msg.MeetingID,
		"reference", req.Msg.Reference,
	)
	return serve(ctx, "SubmitRemotePayment", req, func(actor models.Actor, msg *SubmitRemotePaymentRequest) (*meeting.AppendResult, error) {
		return s.verifier.Submit(ctx, actor, msg.MeetingID, msg.RemotePaymentInput)
	})
}

// VerifyRemotePayment verifies or rejects a PENDING remote payment.
func (s *RemotePaymentService) VerifyRemotePayment(ctx context.Context, req *connect.Request[VerifyRemotePaymentRequest]) (*connect.Response[EntryResponse], error) {
	slog.InfoContext(ctx, "VerifyRemotePayment request received",
		"entry_id", req.Msg.EntryID,
		"action", req.Msg.Action,
	)
	return serve(ctx, "VerifyRemotePayment", req, func(actor models.Actor, msg *VerifyRemotePaymentRequest) (*EntryResponse, error) {
		entry, err := s.verifier.Verify(ctx, actor, msg.EntryID, msg.Action, msg.Notes)
		if err != nil {
			return nil, err
		}
		return &EntryResponse{Entry: entry}, nil
	})
}

func (s *RemotePaymentService) ListRemotePayments(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[models.RemotePaymentListing], error) {
	return serve(ctx, "ListRemotePayments", req, func(actor models.Actor, msg *MeetingRequest) (*models.RemotePaymentListing, error) {
		return s.verifier.List(ctx, actor, msg.MeetingID)
	})
}
