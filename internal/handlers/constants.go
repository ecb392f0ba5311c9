package handlers

const (
	ErrInvalidFormData     = "Invalid form data"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
	ErrNoDrillSession      = "No active drill session"
	ErrTooManyRequests     = "Too many requests"
	ErrInvalidCSRFToken    = "Invalid CSRF token"
)
