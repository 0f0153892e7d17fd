package dto

// ErrorResponse is the envelope every failed HTTP request is answered with.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func NewErrorResponse(code int, message string) ErrorResponse {
	return ErrorResponse{Error: true, Message: message, Code: code}
}
