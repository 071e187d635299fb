package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/savingsgroup/internal/auth"
	"github.com/mmynk/savingsgroup/internal/middleware"
	"github.com/mmynk/savingsgroup/internal/models"
)

const (
	MeetingServiceName       = "savingsgroup.v1.MeetingService"
	LedgerServiceName        = "savingsgroup.v1.LedgerService"
	RemotePaymentServiceName = "savingsgroup.v1.RemotePaymentService"
	DirectoryServiceName     = "savingsgroup.v1.DirectoryService"
)

// Procedure returns the Connect procedure path of a method.
func Procedure(service, method string) string {
	return "/" + service + "/" + method
}

// IsProcedure reports whether an HTTP path belongs to one of the RPC services.
func IsProcedure(path string) bool {
	return strings.HasPrefix(path, "/savingsgroup.v1.")
}

// router collects the unary handlers of one service under its path prefix.
type router struct {
	service string
	mux     *http.ServeMux
	opts    []connect.HandlerOption
}

func newRouter(service string, opts []connect.HandlerOption) *router {
	return &router{
		service: service,
		mux:     http.NewServeMux(),
		opts:    append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...),
	}
}

func handle[Req, Res any](r *router, method string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error)) {
	path := Procedure(r.service, method)
	r.mux.Handle(path, connect.NewUnaryHandler(path, fn, r.opts...))
}

func (r *router) mount() (string, http.Handler) {
	return "/" + r.service + "/", r.mux
}

// NewMeetingServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewMeetingServiceHandler(svc *MeetingService, opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRouter(MeetingServiceName, opts)
	handle(r, "ScheduleMeeting", svc.ScheduleMeeting)
	handle(r, "GetMeeting", svc.GetMeeting)
	handle(r, "ListMeetings", svc.ListMeetings)
	handle(r, "StartMeeting", svc.StartMeeting)
	handle(r, "CompleteMeeting", svc.CompleteMeeting)
	handle(r, "CancelMeeting", svc.CancelMeeting)
	handle(r, "DeleteMeeting", svc.DeleteMeeting)
	handle(r, "UpdateNarrative", svc.UpdateNarrative)
	handle(r, "GetSummary", svc.GetSummary)
	handle(r, "ListSummaryVersions", svc.ListSummaryVersions)
	handle(r, "RegenerateSummary", svc.RegenerateSummary)
	handle(r, "GetGroupRollup", svc.GetGroupRollup)
	handle(r, "GetAuditTrail", svc.GetAuditTrail)
	handle(r, "RecordAttendance", svc.RecordAttendance)
	handle(r, "GetAttendance", svc.GetAttendance)
	return r.mount()
}

// NewLedgerServiceHandler builds an HTTP handler from the service implementation.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRouter(LedgerServiceName, opts)
	handle(r, "RecordSavings", svc.RecordSavings)
	handle(r, "RecordFine", svc.RecordFine)
	handle(r, "RecordLoanRepayment", svc.RecordLoanRepayment)
	handle(r, "RecordLoanDisbursement", svc.RecordLoanDisbursement)
	handle(r, "CreateTraining", svc.CreateTraining)
	handle(r, "RecordTrainingAttendance", svc.RecordTrainingAttendance)
	handle(r, "CreateVoting", svc.CreateVoting)
	handle(r, "CastVotes", svc.CastVotes)
	handle(r, "GetVotingResult", svc.GetVotingResult)
	handle(r, "ListEntries", svc.ListEntries)
	handle(r, "ListMemberSavings", svc.ListMemberSavings)
	handle(r, "AmendEntry", svc.AmendEntry)
	handle(r, "AttachDocuments", svc.AttachDocuments)
	return r.mount()
}

// NewRemotePaymentServiceHandler builds an HTTP handler from the service implementation.
func NewRemotePaymentServiceHandler(svc *RemotePaymentService, opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRouter(RemotePaymentServiceName, opts)
	handle(r, "SubmitRemotePayment", svc.SubmitRemotePayment)
	handle(r, "VerifyRemotePayment", svc.VerifyRemotePayment)
	handle(r, "ListRemotePayments", svc.ListRemotePayments)
	return r.mount()
}

// NewDirectoryServiceHandler builds an HTTP handler from the service implementation.
func NewDirectoryServiceHandler(svc *DirectoryService, opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRouter(DirectoryServiceName, opts)
	handle(r, "CreateGroup", svc.CreateGroup)
	handle(r, "GetGroup", svc.GetGroup)
	handle(r, "UpdateGroup", svc.UpdateGroup)
	handle(r, "CreateMember", svc.CreateMember)
	handle(r, "ListMembers", svc.ListMembers)
	handle(r, "CreateSavingType", svc.CreateSavingType)
	handle(r, "ListSavingTypes", svc.ListSavingTypes)
	return r.mount()
}

// Client calls the RPC services with the JSON codec.
type Client struct {
	httpClient connect.HTTPClient
	baseURL    string
	opts       []connect.ClientOption
}

// NewClient creates a client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...),
	}
}

// Call invokes one unary procedure.
func Call[Req, Res any](ctx context.Context, c *Client, service, method string, req *connect.Request[Req]) (*connect.Response[Res], error) {
	client := connect.NewClient[Req, Res](c.httpClient, c.baseURL+Procedure(service, method), c.opts...)
	return client.CallUnary(ctx, req)
}

// serve runs fn for the authenticated actor and wraps its result.
func serve[Req, Res any](ctx context.Context, op string, req *connect.Request[Req], fn func(models.Actor, *Req) (*Res, error)) (*connect.Response[Res], error) {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	res, err := fn(actor, req.Msg)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return connect.NewResponse(res), nil
}
