package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeConfiguration   ErrorCode = "CONFIGURATION"
	CodeRankingFailed   ErrorCode = "RANKING_FAILED"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeInternal        ErrorCode = "INTERNAL"
)

var (
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrRankingFailed       = errors.New("ranking failed")
	ErrInvalidSelection    = errors.New("invalid tool selection")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrUnsupportedTool     = errors.New("unsupported tool entry")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
		}
	}
	return E(code, op, "", err)
}

// RankingFailure wraps cause as a ranking failure that matches ErrRankingFailed.
func RankingFailure(op string, cause error) *Error {
	if cause == nil {
		return E(CodeRankingFailed, op, "", ErrRankingFailed)
	}
	return E(CodeRankingFailed, op, cause.Error(), fmt.Errorf("%w: %w", ErrRankingFailed, cause))
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrUnsupportedProvider):
		return CodeConfiguration, true
	case errors.Is(err, ErrRankingFailed), errors.Is(err, ErrInvalidSelection):
		return CodeRankingFailed, true
	case errors.Is(err, ErrUnsupportedTool):
		return CodeInvalidArgument, true
	default:
		return "", false
	}
}
