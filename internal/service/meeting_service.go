package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/models"
)

// MeetingService implements the Connect MeetingService: lifecycle,
// summaries and attendance.
type MeetingService struct {
	lifecycle  *meeting.Lifecycle
	attendance *meeting.Attendance
}

// NewMeetingService creates a new MeetingService over the workflow components.
func NewMeetingService(svc *meeting.Service) *MeetingService {
	return &MeetingService{lifecycle: svc.Lifecycle, attendance: svc.Attendance}
}

// ScheduleMeeting creates a SCHEDULED meeting.
func (s *MeetingService) ScheduleMeeting(ctx context.Context, req *connect.Request[models.MeetingDraft]) (*connect.Response[MeetingResponse], error) {
	slog.InfoContext(ctx, "ScheduleMeeting request received",
		"group_id", req.Msg.GroupID,
		"type", req.Msg.Type,
	)
	return serve(ctx, "ScheduleMeeting", req, func(actor models.Actor, msg *models.MeetingDraft) (*MeetingResponse, error) {
		m, err := s.lifecycle.Schedule(ctx, actor, *msg)
		if err != nil {
			return nil, err
		}
		return &MeetingResponse{Meeting: m}, nil
	})
}

// GetMeeting retrieves a meeting by ID.
func (s *MeetingService) GetMeeting(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[MeetingResponse], error) {
	return serve(ctx, "GetMeeting", req, func(actor models.Actor, msg *MeetingRequest) (*MeetingResponse, error) {
		m, err := s.lifecycle.Get(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &MeetingResponse{Meeting: m}, nil
	})
}

// ListMeetings lists a group's meetings.
func (s *MeetingService) ListMeetings(ctx context.Context, req *connect.Request[ListMeetingsRequest]) (*connect.Response[ListMeetingsResponse], error) {
	return serve(ctx, "ListMeetings", req, func(actor models.Actor, msg *ListMeetingsRequest) (*ListMeetingsResponse, error) {
		meetings, err := s.lifecycle.List(ctx, actor, msg.GroupID, msg.Status)
		if err != nil {
			return nil, err
		}
		return &ListMeetingsResponse{Meetings: meetings}, nil
	})
}

// StartMeeting opens a scheduled meeting.
func (s *MeetingService) StartMeeting(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[MeetingResponse], error) {
	slog.InfoContext(ctx, "StartMeeting request received", "meeting_id", req.Msg.MeetingID)
	return serve(ctx, "StartMeeting", req, func(actor models.Actor, msg *MeetingRequest) (*MeetingResponse, error) {
		m, err := s.lifecycle.Start(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &MeetingResponse{Meeting: m}, nil
	})
}

// CompleteMeeting closes a meeting and returns its first summary.
func (s *MeetingService) CompleteMeeting(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[CompleteMeetingResponse], error) {
	slog.InfoContext(ctx, "CompleteMeeting request received", "meeting_id", req.Msg.MeetingID)
	return serve(ctx, "CompleteMeeting", req, func(actor models.Actor, msg *MeetingRequest) (*CompleteMeetingResponse, error) {
		m, sum, err := s.lifecycle.Complete(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &CompleteMeetingResponse{Meeting: m, Summary: sum}, nil
	})
}

// CancelMeeting abandons a meeting.
func (s *MeetingService) CancelMeeting(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[MeetingResponse], error) {
	slog.InfoContext(ctx, "CancelMeeting request received", "meeting_id", req.Msg.MeetingID)
	return serve(ctx, "CancelMeeting", req, func(actor models.Actor, msg *MeetingRequest) (*MeetingResponse, error) {
		m, err := s.lifecycle.Cancel(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &MeetingResponse{Meeting: m}, nil
	})
}

// DeleteMeeting removes a meeting and everything it owns.
func (s *MeetingService) DeleteMeeting(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[DeleteMeetingResponse], error) {
	slog.InfoContext(ctx, "DeleteMeeting request received", "meeting_id", req.Msg.MeetingID)
	return serve(ctx, "DeleteMeeting", req, func(actor models.Actor, msg *MeetingRequest) (*DeleteMeetingResponse, error) {
		if err := s.lifecycle.DeleteMeetingCascade(ctx, actor, msg.MeetingID); err != nil {
			return nil, err
		}
		return &DeleteMeetingResponse{}, nil
	})
}

// UpdateNarrative edits the free-text fields of a meeting.
func (s *MeetingService) UpdateNarrative(ctx context.Context, req *connect.Request[UpdateNarrativeRequest]) (*connect.Response[MeetingResponse], error) {
	return serve(ctx, "UpdateNarrative", req, func(actor models.Actor, msg *UpdateNarrativeRequest) (*MeetingResponse, error) {
		m, err := s.lifecycle.UpdateNarrative(ctx, actor, msg.MeetingID, msg.Narrative)
		if err != nil {
			return nil, err
		}
		return &MeetingResponse{Meeting: m}, nil
	})
}

// GetSummary returns the latest summary of a completed meeting.
func (s *MeetingService) GetSummary(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[SummaryResponse], error) {
	return serve(ctx, "GetSummary", req, func(actor models.Actor, msg *MeetingRequest) (*SummaryResponse, error) {
		sum, err := s.lifecycle.Summary(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &SummaryResponse{Summary: sum}, nil
	})
}

// ListSummaryVersions returns every summary version of a meeting.
func (s *MeetingService) ListSummaryVersions(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[SummaryVersionsResponse], error) {
	return serve(ctx, "ListSummaryVersions", req, func(actor models.Actor, msg *MeetingRequest) (*SummaryVersionsResponse, error) {
		versions, err := s.lifecycle.SummaryVersions(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &SummaryVersionsResponse{Versions: versions}, nil
	})
}

// RegenerateSummary writes a new summary version for a completed meeting.
func (s *MeetingService) RegenerateSummary(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[SummaryResponse], error) {
	slog.InfoContext(ctx, "RegenerateSummary request received", "meeting_id", req.Msg.MeetingID)
	return serve(ctx, "RegenerateSummary", req, func(actor models.Actor, msg *MeetingRequest) (*SummaryResponse, error) {
		sum, err := s.lifecycle.RegenerateSummary(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &SummaryResponse{Summary: sum}, nil
	})
}

// GetGroupRollup aggregates a group's completed meetings.
func (s *MeetingService) GetGroupRollup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[RollupResponse], error) {
	return serve(ctx, "GetGroupRollup", req, func(actor models.Actor, msg *GroupRequest) (*RollupResponse, error) {
		rollup, err := s.lifecycle.Rollup(ctx, actor, msg.GroupID)
		if err != nil {
			return nil, err
		}
		return &RollupResponse{Rollup: rollup}, nil
	})
}

// GetAuditTrail returns the audit entries of a meeting.
func (s *MeetingService) GetAuditTrail(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[AuditTrailResponse], error) {
	return serve(ctx, "GetAuditTrail", req, func(actor models.Actor, msg *MeetingRequest) (*AuditTrailResponse, error) {
		entries, err := s.lifecycle.AuditTrail(ctx, actor, msg.MeetingID)
		if err != nil {
			return nil, err
		}
		return &AuditTrailResponse{Entries: entries}, nil
	})
}

// RecordAttendance upserts register lines and returns the live stats.
func (s *MeetingService) RecordAttendance(ctx context.Context, req *connect.Request[RecordAttendanceRequest]) (*connect.Response[AttendanceResponse], error) {
	slog.InfoContext(ctx, "RecordAttendance request received",
		"meeting_id", req.Msg.MeetingID,
		"records", len(req.Msg.Records),
	)
	return serve(ctx, "RecordAttendance", req, func(actor models.Actor, msg *RecordAttendanceRequest) (*AttendanceResponse, error) {
		if _, err := s.attendance.Record(ctx, actor, msg.MeetingID, msg.Records); err != nil {
			return nil, err
		}
		return s.attendanceView(ctx, actor, msg.MeetingID)
	})
}

// GetAttendance returns the register and live stats of a meeting.
func (s *MeetingService) GetAttendance(ctx context.Context, req *connect.Request[MeetingRequest]) (*connect.Response[AttendanceResponse], error) {
	return serve(ctx, "GetAttendance", req, func(actor models.Actor, msg *MeetingRequest) (*AttendanceResponse, error) {
		return s.attendanceView(ctx, actor, msg.MeetingID)
	})
}

func (s *MeetingService) attendanceView(ctx context.Context, actor models.Actor, meetingID string) (*AttendanceResponse, error) {
	records, err := s.attendance.Records(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	stats, err := s.attendance.Stats(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	return &AttendanceResponse{Records: records, Stats: stats}, nil
}
