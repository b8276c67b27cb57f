package contract

import "errors"

var (
	ErrConfiguration   = errors.New("missing or invalid credentials")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)
