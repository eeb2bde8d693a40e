package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cozy-corner/library-lending/internal/domain"
	"github.com/cozy-corner/library-lending/internal/service"
	customError "github.com/cozy-corner/library-lending/pkg/errors"
	"github.com/cozy-corner/library-lending/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

type LoanBookRequest struct {
	BookID   string     `json:"book_id" validate:"required,uuid4"`
	MemberID string     `json:"member_id" validate:"required,uuid4"`
	StaffID  string     `json:"staff_id" validate:"required,uuid4"`
	LoanedAt *time.Time `json:"loaned_at,omitempty"`
}

type ExtendLoanRequest struct {
	ExtendedAt *time.Time `json:"extended_at,omitempty"`
}

type ReturnBookRequest struct {
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

type LoanCreatedResponse struct {
	LoanID string `json:"loan_id"`
}

// LoanBook handles POST /api/v1/loans
func (h *LoanHandler) LoanBook(w http.ResponseWriter, r *http.Request) {
	var req LoanBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, "Validation failed: "+err.Error())
		return
	}

	bookID, err := domain.ParseBookID(req.BookID)
	if err != nil {
		response.BadRequest(w, "Invalid book ID format")
		return
	}
	memberID, err := domain.ParseMemberID(req.MemberID)
	if err != nil {
		response.BadRequest(w, "Invalid member ID format")
		return
	}
	staffID, err := domain.ParseStaffID(req.StaffID)
	if err != nil {
		response.BadRequest(w, "Invalid staff ID format")
		return
	}

	cmd := service.LoanBookCommand{
		BookID:   bookID,
		MemberID: memberID,
		StaffID:  staffID,
		LoanedAt: timestampOrNow(req.LoanedAt),
	}

	loanID, err := h.service.LoanBook(r.Context(), cmd)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response.Created(w, LoanCreatedResponse{LoanID: loanID.String()})
}

// ExtendLoan handles POST /api/v1/loans/{loanId}/extend
func (h *LoanHandler) ExtendLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanIDFromPath(w, r)
	if !ok {
		return
	}

	var req ExtendLoanRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.ExtendLoan(r.Context(), loanID, timestampOrNow(req.ExtendedAt)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	view, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response.Success(w, view)
}

// ReturnBook handles POST /api/v1/loans/{loanId}/return
func (h *LoanHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanIDFromPath(w, r)
	if !ok {
		return
	}

	var req ReturnBookRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.ReturnBook(r.Context(), loanID, timestampOrNow(req.ReturnedAt)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	view, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response.Success(w, view)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanIDFromPath(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response.Success(w, view)
}

// ListMemberLoans handles GET /api/v1/members/{memberId}/loans
func (h *LoanHandler) ListMemberLoans(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	memberID, err := domain.ParseMemberID(vars["memberId"])
	if err != nil {
		response.BadRequest(w, "Invalid member ID format")
		return
	}

	views, err := h.service.ListMemberLoans(r.Context(), memberID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response.Success(w, views)
}

func (h *LoanHandler) loanIDFromPath(w http.ResponseWriter, r *http.Request) (domain.LoanID, bool) {
	vars := mux.Vars(r)
	loanID, err := domain.ParseLoanID(vars["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID format")
		return domain.LoanID{}, false
	}
	return loanID, true
}

func (h *LoanHandler) handleServiceError(w http.ResponseWriter, err error) {
	var businessErr *customError.BusinessError
	if !errors.As(err, &businessErr) {
		response.InternalServerError(w, "Internal server error")
		return
	}

	switch businessErr.Code {
	case customError.ErrCodeLoanNotFound, customError.ErrCodeMemberNotFound:
		response.NotFound(w, businessErr.Code, businessErr.Message)
	case customError.ErrCodeBookNotAvailable,
		customError.ErrCodeMemberHasOverdueLoans,
		customError.ErrCodeLoanLimitExceeded,
		customError.ErrCodeExtensionLimitExceeded,
		customError.ErrCodeAlreadyReturned,
		customError.ErrCodeInvalidLoanState:
		response.UnprocessableEntity(w, businessErr.Code, businessErr.Message)
	case customError.ErrCodeConflictExhausted:
		response.Conflict(w, businessErr.Code, businessErr.Message)
	default:
		response.InternalServerError(w, "Internal server error")
	}
}

// decodeOptionalBody tolerates an empty body, every field is optional
func decodeOptionalBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func timestampOrNow(t *time.Time) time.Time {
	if t != nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
