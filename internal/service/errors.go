package service

import (
	"errors"
	"fmt"

	"github.com/learnhub/lms-backend/internal/response"
)

// Kind classifies a business-rule failure for transport mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
)

// RuleError is an expected refusal. It is returned, never logged as a fault.
type RuleError struct {
	Kind    Kind
	Code    response.ErrCode
	Message string
	Fields  map[string]string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newRule(kind Kind, code response.ErrCode, msg string) *RuleError {
	if msg == "" {
		msg = response.GetMessage(code)
	}
	return &RuleError{Kind: kind, Code: code, Message: msg}
}

func validationError(code response.ErrCode, fields map[string]string) *RuleError {
	e := newRule(KindValidation, code, "")
	e.Fields = fields
	return e
}

func forbidden(code response.ErrCode) *RuleError { return newRule(KindForbidden, code, "") }

func notFound(code response.ErrCode) *RuleError { return newRule(KindNotFound, code, "") }

func conflict(code response.ErrCode, msg string) *RuleError {
	return newRule(KindConflict, code, msg)
}

// AsRule extracts a RuleError from err.
func AsRule(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
