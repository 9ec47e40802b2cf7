package service

// ErrorBadRequest reports input that an operation rejects before anything is signed or submitted.
type ErrorBadRequest struct {
	errMsg string
}

func (e *ErrorBadRequest) Error() string {
	return e.errMsg
}

// IsBadRequest reports whether err is an `*ErrorBadRequest`.
func IsBadRequest(err error) bool {
	_, ok := err.(*ErrorBadRequest)
	return ok
}
