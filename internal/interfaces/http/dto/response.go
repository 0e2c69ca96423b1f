package dto

import (
	"github.com/donation/backend/internal/domain/shared"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  []shared.FieldError `json:"errors,omitempty"`
	Error   *ErrorInfo          `json:"error,omitempty"`
}

// ListResponse is the envelope for paginated listings. The pagination
// fields sit next to data rather than inside it.
type ListResponse struct {
	Success bool  `json:"success"`
	Count   int   `json:"count"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Pages   int   `json:"pages"`
	Data    any   `json:"data"`
}

// ErrorInfo is the machine readable part of a failed response
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewMessageResponse creates a success response carrying a message
func NewMessageResponse(data any, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

// NewListResponse creates a list response from a page of results
func NewListResponse[T any](p shared.Paginated[T]) ListResponse {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse{
		Success: true,
		Count:   len(items),
		Total:   p.Total,
		Page:    p.Page,
		Pages:   p.Pages,
		Data:    items,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message, requestID string) Response {
	return Response{
		Success: false,
		Message: message,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a VALIDATION_ERROR response listing
// every violated field
func NewValidationErrorResponse(message, requestID string, fields []shared.FieldError) Response {
	resp := NewErrorResponse(shared.CodeValidation, message, requestID)
	resp.Errors = fields
	return resp
}

// ListQuery is the pagination part of every listing query string
type ListQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills in the default page and limit
func (q *ListQuery) Normalize(defaultLimit int) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > shared.MaxPageSize {
		q.Limit = shared.MaxPageSize
	}
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
