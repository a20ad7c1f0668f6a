package httpjson

import (
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Codespace string `json:"codespace"`
	Code      uint32 `json:"code"`
	Error     string `json:"error"`
}

// ErrorCode returns the codespace and code of the registered error in err's
// chain, or the undefined codespace for unregistered errors
func ErrorCode(err error) (string, uint32) {
	var regErr *errorsmod.Error
	if errors.As(err, &regErr) {
		return regErr.Codespace(), regErr.ABCICode()
	}

	return errorsmod.UndefinedCodespace, 1
}

func NewErrorResponse(err error) *ErrorResponse {
	codespace, code := ErrorCode(err)

	return &ErrorResponse{
		Codespace: codespace,
		Code:      code,
		Error:     err.Error(),
	}
}

// Err rebuilds an error from a response so that errors.Is matches the
// registered error on the client side
func (r *ErrorResponse) Err(status int) error {
	if r.Codespace == "" || r.Codespace == errorsmod.UndefinedCodespace {
		return fmt.Errorf("request failed with status %d: %s", status, r.Error)
	}

	return errorsmod.ABCIError(r.Codespace, r.Code, r.Error)
}
