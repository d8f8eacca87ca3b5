package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"eventcheckin/internal/delivery/http/helpers"
	"eventcheckin/internal/delivery/http/middleware"
	"eventcheckin/internal/domain"
)

// TokenSignInRequest is the request body for POST /auth/token.
type TokenSignInRequest struct {
	IDToken string `json:"id_token"`
}

// Validate implements Validator.
func (t TokenSignInRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(t.IDToken) == "" {
		errs = append(errs, "id_token is required")
	}
	return errs
}

// SignInResponse is the response body for a completed sign-in.
type SignInResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	Member    *domain.Member `json:"member"`
}

// SignOutResponse is the response body for DELETE /auth/session.
type SignOutResponse struct {
	SignedOut bool `json:"signed_out"`
}

// SignInSuccessResponse is the success response envelope for sign-in endpoints (200).
type SignInSuccessResponse struct {
	Data  SignInResponse    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// MeSuccessResponse is the success response envelope for GET /auth/me (200).
type MeSuccessResponse struct {
	Data  *domain.Member    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AuthController handles the sign-in lifecycle endpoints.
type AuthController struct {
	Logger  *slog.Logger
	Service domain.SessionService
}

// NewAuthController creates an AuthController with the given logger and service.
func NewAuthController(logger *slog.Logger, svc domain.SessionService) *AuthController {
	return &AuthController{
		Logger:  logger,
		Service: svc,
	}
}

// SignIn godoc
// @Summary Start a redirect sign-in
// @Description Begins the identity-provider redirect flow: creates a pending sign-in flow and redirects the client (302) to the provider's authorize URL. The provider will call back to /auth/callback.
// @Tags auth
// @Success 302 {string} string "redirect to the identity provider"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/signin [get]
func (c *AuthController) SignIn(w http.ResponseWriter, r *http.Request) {
	_, authURL, err := c.Service.BeginSignIn(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback godoc
// @Summary Complete a redirect sign-in
// @Description Finishes the redirect flow with the state and code the identity provider passed back. On success returns a session token and the member record; the role comes fresh from the member store. A flow state is single-use.
// @Tags auth
// @Produce json
// @Param state query string true "flow state nonce"
// @Param code query string true "authorization code"
// @Success 200 {object} controllers.SignInSuccessResponse "data contains token, token_type, and member"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/callback [get]
func (c *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "state and code are required")
		return
	}
	result, err := c.Service.CompleteSignIn(r.Context(), state, code)
	if err != nil {
		c.writeSignInError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SignInResponse{Token: result.Token, TokenType: "Bearer", Member: result.Member})
}

// TokenSignIn godoc
// @Summary Sign in with a provider ID token
// @Description One-shot sign-in for clients that already hold an identity-provider ID token (popup-style flows). Verifies the token, reconciles the member record, and returns a session token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body TokenSignInRequest true "provider ID token"
// @Success 200 {object} controllers.SignInSuccessResponse "data contains token, token_type, and member"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/token [post]
func (c *AuthController) TokenSignIn(w http.ResponseWriter, r *http.Request) {
	var req TokenSignInRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Service.SignInWithIDToken(r.Context(), strings.TrimSpace(req.IDToken))
	if err != nil {
		c.writeSignInError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SignInResponse{Token: result.Token, TokenType: "Bearer", Member: result.Member})
}

// Me godoc
// @Summary Get the signed-in member
// @Description Returns the member record for the current session, role read fresh from the store. Requires Bearer token.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MeSuccessResponse "data contains the member"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/me [get]
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	member, err := c.Service.WhoAmI(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "member not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, member)
}

// SignOut godoc
// @Summary Sign out
// @Description Ends the current session. Requires Bearer token.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains signed_out: true"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/session [delete]
func (c *AuthController) SignOut(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.SignOut(r.Context(), memberID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unknown member")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SignOutResponse{SignedOut: true})
}

// writeSignInError maps sign-in failures onto the response envelope. Every
// failure reason is surfaced to the caller; none is logged-only.
func (c *AuthController) writeSignInError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrFlowNotFound):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, domain.ErrFlowNotFound.Error())
	case errors.Is(err, domain.ErrFlowExpired):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, domain.ErrFlowExpired.Error())
	case errors.Is(err, domain.ErrAuthFailed):
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "sign-in failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
