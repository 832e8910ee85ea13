package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodePermanent  Code = "PERMANENT_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeCorrupt    Code = "CORRUPT_DATA"
	CodeConfig     Code = "CONFIG_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
	CodeDependency Code = "DEPENDENCY_ERROR"
)

// Metadata describes how the pipeline reacts to a code.
type Metadata struct {
	Retryable bool
	// Alert forwards the failure to the operator channel.
	Alert       bool
	Description string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:   false,
		Alert:       false,
		Description: "validation failed",
	},
	CodePermanent: {
		Retryable:   false,
		Alert:       true,
		Description: "order cannot be processed",
	},
	CodeNotFound: {
		Retryable:   false,
		Alert:       false,
		Description: "resource not found",
	},
	CodeConflict: {
		Retryable:   false,
		Alert:       false,
		Description: "conflict detected",
	},
	CodeCorrupt: {
		Retryable:   false,
		Alert:       false,
		Description: "stored data is corrupt",
	},
	CodeConfig: {
		Retryable:   false,
		Alert:       false,
		Description: "invalid configuration",
	},
	CodeInternal: {
		Retryable:   false,
		Alert:       true,
		Description: "internal error",
	},
	CodeDependency: {
		Retryable:   true,
		Alert:       true,
		Description: "dependency unavailable",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code      Code
	message   string
	details   any
	cause     error
	retryable *bool
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// WithRetryable overrides the code default, e.g. a dependency that answered 400.
func (e *Error) WithRetryable(retryable bool) *Error {
	if e == nil {
		return nil
	}
	e.retryable = &retryable
	return e
}

// Retryable reports whether the error is worth another attempt.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryable != nil {
		return *e.retryable
	}
	return MetadataFor(e.code).Retryable
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the first typed error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
