package domainerrors

type DomainError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e DomainError) Error() string { return e.Message }

// Is matches by code, so sentinel comparisons via errors.Is work even when a
// copy carries extra details.
func (e DomainError) Is(target error) bool {
	t, ok := target.(DomainError)
	return ok && t.Code == e.Code
}

func New(code, message string, details map[string]interface{}) DomainError {
	return DomainError{Code: code, Message: message, Details: details}
}

var (
	ErrFileNotFound = DomainError{Code: "FILE_NOT_FOUND", Message: "File not found"}
	// ErrFileMissing: the record exists but the backing file is gone from disk.
	ErrFileMissing   = DomainError{Code: "FILE_MISSING", Message: "File missing from storage"}
	ErrQRNotFound    = DomainError{Code: "QR_NOT_FOUND", Message: "QR code not found"}
	ErrDuplicateID   = DomainError{Code: "DUPLICATE_ID", Message: "File identifier already exists"}
	ErrUnauthorized  = DomainError{Code: "UNAUTHORIZED", Message: "Authentication required"}
	ErrInvalidLogin  = DomainError{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password"}
	ErrInternal      = DomainError{Code: "INTERNAL_ERROR", Message: "Internal server error"}
)
