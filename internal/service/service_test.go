package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/auth"
	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/metrics"
	"github.com/mmynk/savingsgroup/internal/middleware"
	"github.com/mmynk/savingsgroup/internal/models"
	"github.com/mmynk/savingsgroup/internal/storage/sqlite"
)

type testServer struct {
	client     *Client
	jwt        *auth.JWTManager
	group      *models.Group
	members    []*models.Member
	savingType *models.SavingType

	officer string
	member  string
	admin   string
}

// setupTestServer serves every RPC service behind the auth and logging
// interceptors and returns signed tokens for a few actors.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	ts := &testServer{jwt: auth.NewJWTManager("test-secret", time.Hour)}

	ts.group = &models.Group{Name: "Tumaini Women Group"}
	if err := store.CreateGroup(ctx, ts.group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, name := range []string{"Neema", "Rehema", "Zawadi"} {
		m := &models.Member{GroupID: ts.group.ID, Name: name, Active: true}
		if err := store.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		ts.members = append(ts.members, m)
	}
	ts.savingType = &models.SavingType{
		GroupID:       ts.group.ID,
		Name:          "Shares",
		Code:          "SHARES",
		MinimumAmount: decimal.NewFromInt(100),
		Active:        true,
	}
	if err := store.CreateSavingType(ctx, ts.savingType); err != nil {
		t.Fatalf("CreateSavingType failed: %v", err)
	}

	ts.officer = ts.token(t, models.Actor{UserID: "u-neema", MemberID: ts.members[0].ID, GroupID: ts.group.ID, Role: models.RoleTreasurer})
	ts.member = ts.token(t, models.Actor{UserID: "u-rehema", MemberID: ts.members[1].ID, GroupID: ts.group.ID, Role: models.RoleMember})
	ts.admin = ts.token(t, models.Actor{UserID: "u-platform", Role: models.RoleAdmin})

	m := metrics.New(prometheus.NewRegistry())
	svc := meeting.New(meeting.Deps{Store: store, Metrics: m})
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(ts.jwt),
		middleware.LoggingInterceptor(m),
	)

	mux := http.NewServeMux()
	mux.Handle(NewMeetingServiceHandler(NewMeetingService(svc), interceptors))
	mux.Handle(NewLedgerServiceHandler(NewLedgerService(svc), interceptors))
	mux.Handle(NewRemotePaymentServiceHandler(NewRemotePaymentService(svc), interceptors))
	mux.Handle(NewDirectoryServiceHandler(NewDirectoryService(store), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	ts.client = NewClient(http.DefaultClient, server.URL)
	return ts
}

func (ts *testServer) token(t *testing.T, actor models.Actor) string {
	t.Helper()
	tok, err := ts.jwt.Generate(actor)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return tok
}

func invoke[Req, Res any](ts *testServer, token, service, method string, msg *Req) (*Res, error) {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	resp, err := Call[Req, Res](context.Background(), ts.client, service, method, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func expectCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got success", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if connectErr.Code() != want {
		t.Errorf("code: expected %v, got %v (%s)", want, connectErr.Code(), connectErr.Message())
	}
}

func (ts *testServer) startMeeting(t *testing.T) *models.Meeting {
	t.Helper()
	scheduled, err := invoke[models.MeetingDraft, MeetingResponse](ts, ts.officer, MeetingServiceName, "ScheduleMeeting", &models.MeetingDraft{
		GroupID:     ts.group.ID,
		ScheduledAt: time.Now().Add(time.Hour),
		Location:    "Church hall",
	})
	if err != nil {
		t.Fatalf("ScheduleMeeting failed: %v", err)
	}
	started, err := invoke[MeetingRequest, MeetingResponse](ts, ts.officer, MeetingServiceName, "StartMeeting", &MeetingRequest{MeetingID: scheduled.Meeting.ID})
	if err != nil {
		t.Fatalf("StartMeeting failed: %v", err)
	}
	return started.Meeting
}

func TestAuthentication(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		_, err := invoke[GroupRequest, GroupResponse](ts, "", DirectoryServiceName, "GetGroup", &GroupRequest{GroupID: ts.group.ID})
		expectCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := auth.NewJWTManager("other-secret", time.Hour)
		tok, err := other.Generate(models.Actor{UserID: "u-x", GroupID: ts.group.ID, Role: models.RoleAdmin})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		_, err = invoke[GroupRequest, GroupResponse](ts, tok, DirectoryServiceName, "GetGroup", &GroupRequest{GroupID: ts.group.ID})
		expectCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("valid token", func(t *testing.T) {
		resp, err := invoke[GroupRequest, GroupResponse](ts, ts.member, DirectoryServiceName, "GetGroup", &GroupRequest{GroupID: ts.group.ID})
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if resp.Group.Name != "Tumaini Women Group" {
			t.Errorf("name: expected 'Tumaini Women Group', got '%s'", resp.Group.Name)
		}
	})
}

func TestMeetingWorkflow(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.startMeeting(t)

	if m.Status != models.MeetingInProgress {
		t.Fatalf("status: expected IN_PROGRESS, got %s", m.Status)
	}
	if m.TotalMembers != 3 {
		t.Errorf("total members: expected 3, got %d", m.TotalMembers)
	}

	_, err := invoke[MeetingRequest, MeetingResponse](ts, ts.officer, MeetingServiceName, "StartMeeting", &MeetingRequest{MeetingID: m.ID})
	expectCode(t, err, connect.CodeFailedPrecondition)

	_, err = invoke[MeetingRequest, MeetingResponse](ts, ts.officer, MeetingServiceName, "GetMeeting", &MeetingRequest{MeetingID: "no-such-meeting"})
	expectCode(t, err, connect.CodeNotFound)

	_, err = invoke[MeetingRequest, MeetingResponse](ts, ts.member, MeetingServiceName, "CancelMeeting", &MeetingRequest{MeetingID: m.ID})
	expectCode(t, err, connect.CodePermissionDenied)

	savings, err := invoke[RecordSavingsRequest, meeting.AppendResult](ts, ts.officer, LedgerServiceName, "RecordSavings", &RecordSavingsRequest{
		MeetingID: m.ID,
		SavingsInput: meeting.SavingsInput{
			MemberID:     ts.members[2].ID,
			SavingTypeID: ts.savingType.ID,
			Amount:       decimal.NewFromInt(500),
		},
	})
	if err != nil {
		t.Fatalf("RecordSavings failed: %v", err)
	}
	if savings.Entry.Status != models.StatusVerified {
		t.Errorf("status: expected VERIFIED, got %s", savings.Entry.Status)
	}

	_, err = invoke[RecordSavingsRequest, meeting.AppendResult](ts, ts.officer, LedgerServiceName, "RecordSavings", &RecordSavingsRequest{
		MeetingID: m.ID,
		SavingsInput: meeting.SavingsInput{
			MemberID:     ts.members[2].ID,
			SavingTypeID: ts.savingType.ID,
			Amount:       decimal.NewFromInt(-5),
		},
	})
	expectCode(t, err, connect.CodeInvalidArgument)

	submit := &SubmitRemotePaymentRequest{
		MeetingID: m.ID,
		RemotePaymentInput: meeting.RemotePaymentInput{
			SavingTypeID: ts.savingType.ID,
			Amount:       decimal.NewFromInt(300),
			Reference:    "MP-0001",
			Phone:        "+255700000001",
		},
	}
	remote, err := invoke[SubmitRemotePaymentRequest, meeting.AppendResult](ts, ts.member, RemotePaymentServiceName, "SubmitRemotePayment", submit)
	if err != nil {
		t.Fatalf("SubmitRemotePayment failed: %v", err)
	}
	if remote.Entry.Status != models.StatusPending || remote.Entry.MemberID != ts.members[1].ID {
		t.Errorf("remote entry: got status %s member %s", remote.Entry.Status, remote.Entry.MemberID)
	}

	_, err = invoke[SubmitRemotePaymentRequest, meeting.AppendResult](ts, ts.member, RemotePaymentServiceName, "SubmitRemotePayment", submit)
	expectCode(t, err, connect.CodeAlreadyExists)

	verify := &VerifyRemotePaymentRequest{EntryID: remote.Entry.ID, Action: models.ActionVerify}
	_, err = invoke[VerifyRemotePaymentRequest, EntryResponse](ts, ts.member, RemotePaymentServiceName, "VerifyRemotePayment", verify)
	expectCode(t, err, connect.CodePermissionDenied)

	verified, err := invoke[VerifyRemotePaymentRequest, EntryResponse](ts, ts.officer, RemotePaymentServiceName, "VerifyRemotePayment", verify)
	if err != nil {
		t.Fatalf("VerifyRemotePayment failed: %v", err)
	}
	if verified.Entry.Status != models.StatusVerified {
		t.Errorf("status: expected VERIFIED, got %s", verified.Entry.Status)
	}

	_, err = invoke[VerifyRemotePaymentRequest, EntryResponse](ts, ts.officer, RemotePaymentServiceName, "VerifyRemotePayment", verify)
	expectCode(t, err, connect.CodeAborted)

	listing, err := invoke[MeetingRequest, models.RemotePaymentListing](ts, ts.officer, RemotePaymentServiceName, "ListRemotePayments", &MeetingRequest{MeetingID: m.ID})
	if err != nil {
		t.Fatalf("ListRemotePayments failed: %v", err)
	}
	if len(listing.Verified.Entries) != 1 || !listing.Verified.Total.Equal(decimal.NewFromInt(300)) {
		t.Errorf("verified partition: got %d entries totalling %s", len(listing.Verified.Entries), listing.Verified.Total)
	}
	if len(listing.Pending.Entries) != 0 {
		t.Errorf("pending partition: expected empty, got %d", len(listing.Pending.Entries))
	}

	attendance, err := invoke[RecordAttendanceRequest, AttendanceResponse](ts, ts.officer, MeetingServiceName, "RecordAttendance", &RecordAttendanceRequest{
		MeetingID: m.ID,
		Records: []meeting.AttendanceInput{
			{MemberID: ts.members[0].ID, Present: true},
			{MemberID: ts.members[2].ID, Present: true},
		},
	})
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if attendance.Stats.MembersPresent != 2 || !attendance.Stats.QuorumMet {
		t.Errorf("stats: got %d present, quorum %v", attendance.Stats.MembersPresent, attendance.Stats.QuorumMet)
	}

	completed, err := invoke[MeetingRequest, CompleteMeetingResponse](ts, ts.officer, MeetingServiceName, "CompleteMeeting", &MeetingRequest{MeetingID: m.ID})
	if err != nil {
		t.Fatalf("CompleteMeeting failed: %v", err)
	}
	if completed.Meeting.Status != models.MeetingCompleted {
		t.Errorf("status: expected COMPLETED, got %s", completed.Meeting.Status)
	}
	if !completed.Summary.NetCashFlow.Equal(decimal.NewFromInt(800)) {
		t.Errorf("net cash flow: expected 800, got %s", completed.Summary.NetCashFlow)
	}

	summary, err := invoke[MeetingRequest, SummaryResponse](ts, ts.member, MeetingServiceName, "GetSummary", &MeetingRequest{MeetingID: m.ID})
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.Summary.Version != 1 {
		t.Errorf("version: expected 1, got %d", summary.Summary.Version)
	}

	balances, err := invoke[MemberSavingsRequest, MemberSavingsResponse](ts, ts.officer, LedgerServiceName, "ListMemberSavings", &MemberSavingsRequest{GroupID: ts.group.ID})
	if err != nil {
		t.Fatalf("ListMemberSavings failed: %v", err)
	}
	total := decimal.Zero
	for _, b := range balances.Savings {
		total = total.Add(b.CurrentBalance)
	}
	if !total.Equal(summary.Summary.NetSavings) {
		t.Errorf("member balances: expected %s in total, got %s", summary.Summary.NetSavings, total)
	}

	_, err = invoke[RecordSavingsRequest, meeting.AppendResult](ts, ts.officer, LedgerServiceName, "RecordSavings", &RecordSavingsRequest{
		MeetingID: m.ID,
		SavingsInput: meeting.SavingsInput{
			MemberID:     ts.members[2].ID,
			SavingTypeID: ts.savingType.ID,
			Amount:       decimal.NewFromInt(500),
		},
	})
	expectCode(t, err, connect.CodeFailedPrecondition)
}

func TestDirectoryService(t *testing.T) {
	ts := setupTestServer(t)
	groupAdmin := ts.token(t, models.Actor{UserID: "u-chair", GroupID: ts.group.ID, Role: models.RoleChairperson})

	t.Run("only platform admins create groups", func(t *testing.T) {
		_, err := invoke[CreateGroupRequest, GroupResponse](ts, groupAdmin, DirectoryServiceName, "CreateGroup", &CreateGroupRequest{Name: "Other"})
		expectCode(t, err, connect.CodePermissionDenied)

		resp, err := invoke[CreateGroupRequest, GroupResponse](ts, ts.admin, DirectoryServiceName, "CreateGroup", &CreateGroupRequest{
			Name:             "Jitegemee",
			QuorumPercentage: decimal.NewNullDecimal(decimal.NewFromInt(60)),
		})
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if resp.Group.ID == "" || !resp.Group.QuorumPercentage.Valid {
			t.Errorf("unexpected group: %+v", resp.Group)
		}
	})

	t.Run("quorum must be a percentage", func(t *testing.T) {
		_, err := invoke[CreateGroupRequest, GroupResponse](ts, ts.admin, DirectoryServiceName, "CreateGroup", &CreateGroupRequest{
			Name:             "Too strict",
			QuorumPercentage: decimal.NewNullDecimal(decimal.NewFromInt(150)),
		})
		expectCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("group admin adds members", func(t *testing.T) {
		resp, err := invoke[CreateMemberRequest, MemberResponse](ts, groupAdmin, DirectoryServiceName, "CreateMember", &CreateMemberRequest{
			GroupID: ts.group.ID,
			Name:    "Imani",
		})
		if err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		if resp.Member.Role != models.RoleMember || !resp.Member.Active {
			t.Errorf("unexpected member: %+v", resp.Member)
		}

		members, err := invoke[GroupRequest, MembersResponse](ts, ts.member, DirectoryServiceName, "ListMembers", &GroupRequest{GroupID: ts.group.ID})
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(members.Members) != 4 {
			t.Errorf("members: expected 4, got %d", len(members.Members))
		}
	})

	t.Run("members cannot administer", func(t *testing.T) {
		_, err := invoke[CreateMemberRequest, MemberResponse](ts, ts.member, DirectoryServiceName, "CreateMember", &CreateMemberRequest{
			GroupID: ts.group.ID,
			Name:    "Intruder",
		})
		expectCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("saving type limits", func(t *testing.T) {
		_, err := invoke[CreateSavingTypeRequest, SavingTypeResponse](ts, groupAdmin, DirectoryServiceName, "CreateSavingType", &CreateSavingTypeRequest{
			GroupID:       ts.group.ID,
			Name:          "Emergency",
			Code:          "emergency",
			MinimumAmount: decimal.NewFromInt(500),
			MaximumAmount: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		})
		expectCode(t, err, connect.CodeInvalidArgument)

		resp, err := invoke[CreateSavingTypeRequest, SavingTypeResponse](ts, groupAdmin, DirectoryServiceName, "CreateSavingType", &CreateSavingTypeRequest{
			GroupID:          ts.group.ID,
			Name:             "Emergency",
			Code:             "emergency",
			MinimumAmount:    decimal.NewFromInt(50),
			AllowsWithdrawal: true,
		})
		if err != nil {
			t.Fatalf("CreateSavingType failed: %v", err)
		}
		if resp.SavingType.Code != "EMERGENCY" {
			t.Errorf("code: expected 'EMERGENCY', got '%s'", resp.SavingType.Code)
		}

		types, err := invoke[GroupRequest, SavingTypesResponse](ts, ts.member, DirectoryServiceName, "ListSavingTypes", &GroupRequest{GroupID: ts.group.ID})
		if err != nil {
			t.Fatalf("ListSavingTypes failed: %v", err)
		}
		if len(types.SavingTypes) != 2 {
			t.Errorf("saving types: expected 2, got %d", len(types.SavingTypes))
		}
	})

	t.Run("other groups are off limits", func(t *testing.T) {
		outsider := ts.token(t, models.Actor{UserID: "u-out", GroupID: "another-group", Role: models.RoleAdmin})
		_, err := invoke[GroupRequest, GroupResponse](ts, outsider, DirectoryServiceName, "GetGroup", &GroupRequest{GroupID: ts.group.ID})
		expectCode(t, err, connect.CodePermissionDenied)
	})
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{models.ErrInvalidTransition, connect.CodeFailedPrecondition},
		{models.ErrMeetingNotActive, connect.CodeFailedPrecondition},
		{models.ErrInvalidAmount, connect.CodeInvalidArgument},
		{models.ErrSavingTypeConstraint, connect.CodeInvalidArgument},
		{models.ErrDuplicateReference, connect.CodeAlreadyExists},
		{models.ErrAlreadyResolved, connect.CodeAborted},
		{models.ErrNotFound, connect.CodeNotFound},
		{models.ErrForbidden, connect.CodePermissionDenied},
		{errors.New("disk full"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := toConnectError(tt.err).Code(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
