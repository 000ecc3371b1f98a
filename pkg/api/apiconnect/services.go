package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/financeflow/pkg/api"
)

// Fully-qualified service names.
const (
	AuthServiceName         = "financeflow.v1.AuthService"
	ProfileServiceName      = "financeflow.v1.ProfileService"
	LedgerServiceName       = "financeflow.v1.LedgerService"
	FriendServiceName       = "financeflow.v1.FriendService"
	NotificationServiceName = "financeflow.v1.NotificationService"
)

// Procedure paths, as they appear in the URL and in req.Spec().Procedure.
const (
	AuthServiceSignupProcedure = "/" + AuthServiceName + "/Signup"
	AuthServiceLoginProcedure  = "/" + AuthServiceName + "/Login"

	ProfileServiceGetProfileProcedure    = "/" + ProfileServiceName + "/GetProfile"
	ProfileServiceUpdateProfileProcedure = "/" + ProfileServiceName + "/UpdateProfile"

	LedgerServiceSaveTransactionProcedure = "/" + LedgerServiceName + "/SaveTransaction"
	LedgerServiceFetchHistoryProcedure    = "/" + LedgerServiceName + "/FetchHistory"
	LedgerServiceFetchDashboardProcedure  = "/" + LedgerServiceName + "/FetchDashboard"
	LedgerServicePreviewSplitProcedure    = "/" + LedgerServiceName + "/PreviewSplit"
	LedgerServiceFriendLedgerProcedure    = "/" + LedgerServiceName + "/FriendLedger"

	FriendServiceFetchFriendsProcedure      = "/" + FriendServiceName + "/FetchFriends"
	FriendServiceSendFriendRequestProcedure = "/" + FriendServiceName + "/SendFriendRequest"
	FriendServiceRemoveFriendProcedure      = "/" + FriendServiceName + "/RemoveFriend"
	FriendServiceSearchUsersProcedure       = "/" + FriendServiceName + "/SearchUsers"

	NotificationServiceFetchNotificationsProcedure = "/" + NotificationServiceName + "/FetchNotifications"
	NotificationServiceHandleActionProcedure       = "/" + NotificationServiceName + "/HandleAction"
)

// PublicProcedures can be called without a token.
var PublicProcedures = []string{
	AuthServiceSignupProcedure,
	AuthServiceLoginProcedure,
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

// route dispatches a service's requests to its procedure handlers.
func route(name string, handlers map[string]http.Handler) (string, http.Handler) {
	return "/" + name + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// ---- AuthService ----

// AuthServiceHandler is implemented by the server-side AuthService.
type AuthServiceHandler interface {
	Signup(context.Context, *connect.Request[api.SignupRequest]) (*connect.Response[api.AuthResponse], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.AuthResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(AuthServiceName, map[string]http.Handler{
		AuthServiceSignupProcedure: connect.NewUnaryHandler(AuthServiceSignupProcedure, svc.Signup, opts...),
		AuthServiceLoginProcedure:  connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
	})
}

// AuthServiceClient is a client for the AuthService.
type AuthServiceClient interface {
	Signup(context.Context, *connect.Request[api.SignupRequest]) (*connect.Response[api.AuthResponse], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.AuthResponse], error)
}

type authServiceClient struct {
	signup *connect.Client[api.SignupRequest, api.AuthResponse]
	login  *connect.Client[api.LoginRequest, api.AuthResponse]
}

// NewAuthServiceClient constructs a client for the AuthService at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &authServiceClient{
		signup: connect.NewClient[api.SignupRequest, api.AuthResponse](httpClient, baseURL+AuthServiceSignupProcedure, opts...),
		login:  connect.NewClient[api.LoginRequest, api.AuthResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
	}
}

func (c *authServiceClient) Signup(ctx context.Context, req *connect.Request[api.SignupRequest]) (*connect.Response[api.AuthResponse], error) {
	return c.signup.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

// ---- ProfileService ----

// ProfileServiceHandler is implemented by the server-side ProfileService.
type ProfileServiceHandler interface {
	GetProfile(context.Context, *connect.Request[api.GetProfileRequest]) (*connect.Response[api.ProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.ProfileResponse], error)
}

// NewProfileServiceHandler builds an HTTP handler from the service implementation.
func NewProfileServiceHandler(svc ProfileServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(ProfileServiceName, map[string]http.Handler{
		ProfileServiceGetProfileProcedure:    connect.NewUnaryHandler(ProfileServiceGetProfileProcedure, svc.GetProfile, opts...),
		ProfileServiceUpdateProfileProcedure: connect.NewUnaryHandler(ProfileServiceUpdateProfileProcedure, svc.UpdateProfile, opts...),
	})
}

// ProfileServiceClient is a client for the ProfileService.
type ProfileServiceClient interface {
	GetProfile(context.Context, *connect.Request[api.GetProfileRequest]) (*connect.Response[api.ProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.ProfileResponse], error)
}

type profileServiceClient struct {
	getProfile    *connect.Client[api.GetProfileRequest, api.ProfileResponse]
	updateProfile *connect.Client[api.UpdateProfileRequest, api.ProfileResponse]
}

// NewProfileServiceClient constructs a client for the ProfileService at baseURL.
func NewProfileServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ProfileServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &profileServiceClient{
		getProfile:    connect.NewClient[api.GetProfileRequest, api.ProfileResponse](httpClient, baseURL+ProfileServiceGetProfileProcedure, opts...),
		updateProfile: connect.NewClient[api.UpdateProfileRequest, api.ProfileResponse](httpClient, baseURL+ProfileServiceUpdateProfileProcedure, opts...),
	}
}

func (c *profileServiceClient) GetProfile(ctx context.Context, req *connect.Request[api.GetProfileRequest]) (*connect.Response[api.ProfileResponse], error) {
	return c.getProfile.CallUnary(ctx, req)
}

func (c *profileServiceClient) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.ProfileResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}

// ---- LedgerService ----

// LedgerServiceHandler is implemented by the server-side LedgerService.
type LedgerServiceHandler interface {
	SaveTransaction(context.Context, *connect.Request[api.SaveTransactionRequest]) (*connect.Response[api.SaveTransactionResponse], error)
	FetchHistory(context.Context, *connect.Request[api.FetchHistoryRequest]) (*connect.Response[api.FetchHistoryResponse], error)
	FetchDashboard(context.Context, *connect.Request[api.FetchDashboardRequest]) (*connect.Response[api.FetchDashboardResponse], error)
	PreviewSplit(context.Context, *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error)
	FriendLedger(context.Context, *connect.Request[api.FriendLedgerRequest]) (*connect.Response[api.FriendLedgerResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service implementation.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(LedgerServiceName, map[string]http.Handler{
		LedgerServiceSaveTransactionProcedure: connect.NewUnaryHandler(LedgerServiceSaveTransactionProcedure, svc.SaveTransaction, opts...),
		LedgerServiceFetchHistoryProcedure:    connect.NewUnaryHandler(LedgerServiceFetchHistoryProcedure, svc.FetchHistory, opts...),
		LedgerServiceFetchDashboardProcedure:  connect.NewUnaryHandler(LedgerServiceFetchDashboardProcedure, svc.FetchDashboard, opts...),
		LedgerServicePreviewSplitProcedure:    connect.NewUnaryHandler(LedgerServicePreviewSplitProcedure, svc.PreviewSplit, opts...),
		LedgerServiceFriendLedgerProcedure:    connect.NewUnaryHandler(LedgerServiceFriendLedgerProcedure, svc.FriendLedger, opts...),
	})
}

// LedgerServiceClient is a client for the LedgerService.
type LedgerServiceClient interface {
	SaveTransaction(context.Context, *connect.Request[api.SaveTransactionRequest]) (*connect.Response[api.SaveTransactionResponse], error)
	FetchHistory(context.Context, *connect.Request[api.FetchHistoryRequest]) (*connect.Response[api.FetchHistoryResponse], error)
	FetchDashboard(context.Context, *connect.Request[api.FetchDashboardRequest]) (*connect.Response[api.FetchDashboardResponse], error)
	PreviewSplit(context.Context, *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error)
	FriendLedger(context.Context, *connect.Request[api.FriendLedgerRequest]) (*connect.Response[api.FriendLedgerResponse], error)
}

type ledgerServiceClient struct {
	saveTransaction *connect.Client[api.SaveTransactionRequest, api.SaveTransactionResponse]
	fetchHistory    *connect.Client[api.FetchHistoryRequest, api.FetchHistoryResponse]
	fetchDashboard  *connect.Client[api.FetchDashboardRequest, api.FetchDashboardResponse]
	previewSplit    *connect.Client[api.PreviewSplitRequest, api.PreviewSplitResponse]
	friendLedger    *connect.Client[api.FriendLedgerRequest, api.FriendLedgerResponse]
}

// NewLedgerServiceClient constructs a client for the LedgerService at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ledgerServiceClient{
		saveTransaction: connect.NewClient[api.SaveTransactionRequest, api.SaveTransactionResponse](httpClient, baseURL+LedgerServiceSaveTransactionProcedure, opts...),
		fetchHistory:    connect.NewClient[api.FetchHistoryRequest, api.FetchHistoryResponse](httpClient, baseURL+LedgerServiceFetchHistoryProcedure, opts...),
		fetchDashboard:  connect.NewClient[api.FetchDashboardRequest, api.FetchDashboardResponse](httpClient, baseURL+LedgerServiceFetchDashboardProcedure, opts...),
		previewSplit:    connect.NewClient[api.PreviewSplitRequest, api.PreviewSplitResponse](httpClient, baseURL+LedgerServicePreviewSplitProcedure, opts...),
		friendLedger:    connect.NewClient[api.FriendLedgerRequest, api.FriendLedgerResponse](httpClient, baseURL+LedgerServiceFriendLedgerProcedure, opts...),
	}
}

func (c *ledgerServiceClient) SaveTransaction(ctx context.Context, req *connect.Request[api.SaveTransactionRequest]) (*connect.Response[api.SaveTransactionResponse], error) {
	return c.saveTransaction.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) FetchHistory(ctx context.Context, req *connect.Request[api.FetchHistoryRequest]) (*connect.Response[api.FetchHistoryResponse], error) {
	return c.fetchHistory.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) FetchDashboard(ctx context.Context, req *connect.Request[api.FetchDashboardRequest]) (*connect.Response[api.FetchDashboardResponse], error) {
	return c.fetchDashboard.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) FriendLedger(ctx context.Context, req *connect.Request[api.FriendLedgerRequest]) (*connect.Response[api.FriendLedgerResponse], error) {
	return c.friendLedger.CallUnary(ctx, req)
}

// ---- FriendService ----

// FriendServiceHandler is implemented by the server-side FriendService.
type FriendServiceHandler interface {
	FetchFriends(context.Context, *connect.Request[api.FetchFriendsRequest]) (*connect.Response[api.FetchFriendsResponse], error)
	SendFriendRequest(context.Context, *connect.Request[api.SendFriendRequestRequest]) (*connect.Response[api.SendFriendRequestResponse], error)
	RemoveFriend(context.Context, *connect.Request[api.RemoveFriendRequest]) (*connect.Response[api.RemoveFriendResponse], error)
	SearchUsers(context.Context, *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error)
}

// NewFriendServiceHandler builds an HTTP handler from the service implementation.
func NewFriendServiceHandler(svc FriendServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(FriendServiceName, map[string]http.Handler{
		FriendServiceFetchFriendsProcedure:      connect.NewUnaryHandler(FriendServiceFetchFriendsProcedure, svc.FetchFriends, opts...),
		FriendServiceSendFriendRequestProcedure: connect.NewUnaryHandler(FriendServiceSendFriendRequestProcedure, svc.SendFriendRequest, opts...),
		FriendServiceRemoveFriendProcedure:      connect.NewUnaryHandler(FriendServiceRemoveFriendProcedure, svc.RemoveFriend, opts...),
		FriendServiceSearchUsersProcedure:       connect.NewUnaryHandler(FriendServiceSearchUsersProcedure, svc.SearchUsers, opts...),
	})
}

// FriendServiceClient is a client for the FriendService.
type FriendServiceClient interface {
	FetchFriends(context.Context, *connect.Request[api.FetchFriendsRequest]) (*connect.Response[api.FetchFriendsResponse], error)
	SendFriendRequest(context.Context, *connect.Request[api.SendFriendRequestRequest]) (*connect.Response[api.SendFriendRequestResponse], error)
	RemoveFriend(context.Context, *connect.Request[api.RemoveFriendRequest]) (*connect.Response[api.RemoveFriendResponse], error)
	SearchUsers(context.Context, *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error)
}

type friendServiceClient struct {
	fetchFriends      *connect.Client[api.FetchFriendsRequest, api.FetchFriendsResponse]
	sendFriendRequest *connect.Client[api.SendFriendRequestRequest, api.SendFriendRequestResponse]
	removeFriend      *connect.Client[api.RemoveFriendRequest, api.RemoveFriendResponse]
	searchUsers       *connect.Client[api.SearchUsersRequest, api.SearchUsersResponse]
}

// NewFriendServiceClient constructs a client for the FriendService at baseURL.
func NewFriendServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) FriendServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &friendServiceClient{
		fetchFriends:      connect.NewClient[api.FetchFriendsRequest, api.FetchFriendsResponse](httpClient, baseURL+FriendServiceFetchFriendsProcedure, opts...),
		sendFriendRequest: connect.NewClient[api.SendFriendRequestRequest, api.SendFriendRequestResponse](httpClient, baseURL+FriendServiceSendFriendRequestProcedure, opts...),
		removeFriend:      connect.NewClient[api.RemoveFriendRequest, api.RemoveFriendResponse](httpClient, baseURL+FriendServiceRemoveFriendProcedure, opts...),
		searchUsers:       connect.NewClient[api.SearchUsersRequest, api.SearchUsersResponse](httpClient, baseURL+FriendServiceSearchUsersProcedure, opts...),
	}
}

func (c *friendServiceClient) FetchFriends(ctx context.Context, req *connect.Request[api.FetchFriendsRequest]) (*connect.Response[api.FetchFriendsResponse], error) {
	return c.fetchFriends.CallUnary(ctx, req)
}

func (c *friendServiceClient) SendFriendRequest(ctx context.Context, req *connect.Request[api.SendFriendRequestRequest]) (*connect.Response[api.SendFriendRequestResponse], error) {
	return c.sendFriendRequest.CallUnary(ctx, req)
}

func (c *friendServiceClient) RemoveFriend(ctx context.Context, req *connect.Request[api.RemoveFriendRequest]) (*connect.Response[api.RemoveFriendResponse], error) {
	return c.removeFriend.CallUnary(ctx, req)
}

func (c *friendServiceClient) SearchUsers(ctx context.Context, req *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error) {
	return c.searchUsers.CallUnary(ctx, req)
}

// ---- NotificationService ----

// NotificationServiceHandler is implemented by the server-side NotificationService.
type NotificationServiceHandler interface {
	FetchNotifications(context.Context, *connect.Request[api.FetchNotificationsRequest]) (*connect.Response[api.FetchNotificationsResponse], error)
	HandleAction(context.Context, *connect.Request[api.HandleActionRequest]) (*connect.Response[api.HandleActionResponse], error)
}

// NewNotificationServiceHandler builds an HTTP handler from the service implementation.
func NewNotificationServiceHandler(svc NotificationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(NotificationServiceName, map[string]http.Handler{
		NotificationServiceFetchNotificationsProcedure: connect.NewUnaryHandler(NotificationServiceFetchNotificationsProcedure, svc.FetchNotifications, opts...),
		NotificationServiceHandleActionProcedure:       connect.NewUnaryHandler(NotificationServiceHandleActionProcedure, svc.HandleAction, opts...),
	})
}

// NotificationServiceClient is a client for the NotificationService.
type NotificationServiceClient interface {
	FetchNotifications(context.Context, *connect.Request[api.FetchNotificationsRequest]) (*connect.Response[api.FetchNotificationsResponse], error)
	HandleAction(context.Context, *connect.Request[api.HandleActionRequest]) (*connect.Response[api.HandleActionResponse], error)
}

type notificationServiceClient struct {
	fetchNotifications *connect.Client[api.FetchNotificationsRequest, api.FetchNotificationsResponse]
	handleAction       *connect.Client[api.HandleActionRequest, api.HandleActionResponse]
}

// NewNotificationServiceClient constructs a client for the NotificationService at baseURL.
func NewNotificationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) NotificationServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &notificationServiceClient{
		fetchNotifications: connect.NewClient[api.FetchNotificationsRequest, api.FetchNotificationsResponse](httpClient, baseURL+NotificationServiceFetchNotificationsProcedure, opts...),
		handleAction:       connect.NewClient[api.HandleActionRequest, api.HandleActionResponse](httpClient, baseURL+NotificationServiceHandleActionProcedure, opts...),
	}
}

func (c *notificationServiceClient) FetchNotifications(ctx context.Context, req *connect.Request[api.FetchNotificationsRequest]) (*connect.Response[api.FetchNotificationsResponse], error) {
	return c.fetchNotifications.CallUnary(ctx, req)
}

func (c *notificationServiceClient) HandleAction(ctx context.Context, req *connect.Request[api.HandleActionRequest]) (*connect.Response[api.HandleActionResponse], error) {
	return c.handleAction.CallUnary(ctx, req)
}
