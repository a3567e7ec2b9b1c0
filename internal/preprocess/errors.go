package preprocess

import "errors"

// ErrInsufficientData means the table cannot support clustering: no numeric
// columns, none surviving cleaning, or too few rows.
var ErrInsufficientData = errors.New("insufficient data")

// ErrInvalidData marks a broken precondition such as a non-finite value or a
// zero-variance column reaching the scaler.
var ErrInvalidData = errors.New("invalid data")
