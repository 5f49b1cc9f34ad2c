package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	NotFound     = "NOT_FOUND"
	Unauthorized = "UNAUTHORIZED"
	Forbidden    = "FORBIDDEN"
	Conflict     = "CONFLICT"
	TooMany      = "TOO_MANY_REQUESTS"
	UploadConfig = "UPLOAD_CONFIG"
	UploadFailed = "UPLOAD_FAILED"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	// Fields maps a json field name to what is wrong with it.
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteResponse is returned by every create/update/delete. SavedOffline is
// true when the record only reached the server's local queue.
type WriteResponse struct {
	ID           string `json:"id"`
	SavedOffline bool   `json:"savedOffline"`
	Record       any    `json:"record,omitempty"`
}

func ErrorResponse(c *ginext.Context, status int, code, desc string) {
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	ErrorResponse(c, http.StatusBadRequest, code, desc)
}

func ValidationError(c *ginext.Context, desc string, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Status: "error",
		Error: &Error{
			Code:   FieldIncorrect,
			Desc:   desc,
			Fields: fields,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func UnavailableError(c *ginext.Context) {
	ErrorResponse(c, http.StatusServiceUnavailable, ServiceUnavailable, InternalError)
}

func FieldBadFormatError(c *ginext.Context, fieldName string) {
	BadResponseError(c, FieldBadFormat, "Field '"+fieldName+"' has bad format")
}

func NotFoundError(c *ginext.Context, what string) {
	ErrorResponse(c, http.StatusNotFound, NotFound, what+" not found")
}

func UnauthorizedError(c *ginext.Context, desc string) {
	ErrorResponse(c, http.StatusUnauthorized, Unauthorized, desc)
}

func ForbiddenError(c *ginext.Context) {
	ErrorResponse(c, http.StatusForbidden, Forbidden, "Admin access required")
}

func ConflictError(c *ginext.Context, desc string) {
	ErrorResponse(c, http.StatusConflict, Conflict, desc)
}

func TooManyRequestsError(c *ginext.Context) {
	ErrorResponse(c, http.StatusTooManyRequests, TooMany, "Too many requests, slow down")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
