package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"eventcheckin/internal/delivery/http/helpers"
	"eventcheckin/internal/domain"
	"eventcheckin/internal/services"
)

// UpdateRoleRequest is the request body for PATCH /members/{memberID}/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// Validate implements Validator.
func (u UpdateRoleRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(u.Role) == "" {
		errs = append(errs, "role is required")
	}
	return errs
}

// PreRegisterRequest is the request body for POST /members/preregister.
type PreRegisterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// Validate implements Validator.
func (p PreRegisterRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(p.Email) == "" {
		errs = append(errs, "email is required")
	}
	return errs
}

// MemberListSuccessResponse is the success response envelope for GET /members (200).
type MemberListSuccessResponse struct {
	Data  []*domain.Member  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// MemberSuccessResponse is the success response envelope for single-member endpoints (200).
type MemberSuccessResponse struct {
	Data  *domain.Member    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// StatsSuccessResponse is the success response envelope for GET /members/stats (200).
type StatsSuccessResponse struct {
	Data  domain.RosterStats `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// MemberController handles the roster endpoints.
type MemberController struct {
	Logger  *slog.Logger
	Service domain.RosterService
}

// NewMemberController creates a MemberController with the given logger and service.
func NewMemberController(logger *slog.Logger, svc domain.RosterService) *MemberController {
	return &MemberController{
		Logger:  logger,
		Service: svc,
	}
}

// List godoc
// @Summary List the roster
// @Description Returns all live members, retired pre-registrations excluded. With ?q= the list is narrowed to members whose name, email, or ID contains the query, case-insensitively. Admin only.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param q query string false "case-insensitive substring filter over name, email, and ID"
// @Success 200 {object} controllers.MemberListSuccessResponse "data contains the member list"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /members [get]
func (c *MemberController) List(w http.ResponseWriter, r *http.Request) {
	members, err := c.Service.ListAll(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	members = services.Filter(members, r.URL.Query().Get("q"))
	if members == nil {
		members = []*domain.Member{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, members)
}

// Stats godoc
// @Summary Roster check-in stats
// @Description Returns total, checked-in, and pending counts plus the check-in rate as a whole percentage. An empty roster reports a rate of zero. Admin only.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.StatsSuccessResponse "data contains the stats"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /members/stats [get]
func (c *MemberController) Stats(w http.ResponseWriter, r *http.Request) {
	members, err := c.Service.ListAll(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, services.Stats(members))
}

// CheckIn godoc
// @Summary Check a member in
// @Description Marks the member as checked in and stamps the check-in time. Checking in an already checked-in member refreshes the timestamp. Admin only.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param memberID path string true "member ID"
// @Success 200 {object} controllers.MemberSuccessResponse "data contains the updated member"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /members/{memberID}/checkin [post]
func (c *MemberController) CheckIn(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("memberID")
	member, err := c.Service.CheckIn(r.Context(), memberID)
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

// UpdateRole godoc
// @Summary Change a member's role
// @Description Sets the member's role to user or admin. Admin only.
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param memberID path string true "member ID"
// @Param body body UpdateRoleRequest true "new role"
// @Success 200 {object} controllers.MemberSuccessResponse "data contains the updated member"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /members/{memberID}/role [patch]
func (c *MemberController) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	memberID := r.PathValue("memberID")
	member, err := c.Service.UpdateRole(r.Context(), memberID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRole):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		case errors.Is(err, domain.ErrMemberNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "member not found")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, member)
}

// PreRegister godoc
// @Summary Pre-register a member by email
// @Description Creates an email-keyed roster record for someone who has not signed in yet. When they later sign in with the same email, the record is merged into their identity-keyed one. Sends an invitation email when mail is configured. Admin only.
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PreRegisterRequest true "member to pre-register"
// @Success 201 {object} controllers.MemberSuccessResponse "data contains the pre-registered member"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /members/preregister [post]
func (c *MemberController) PreRegister(w http.ResponseWriter, r *http.Request) {
	var req PreRegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	member, err := c.Service.PreRegister(r.Context(), req.Email, req.Name, req.Role)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRole) || errors.Is(err, domain.ErrInvalidEmail) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, member)
}
