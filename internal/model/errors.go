package model

import "errors"

var (
	// ErrUnsortedInput marks a table whose dates are not strictly ascending.
	ErrUnsortedInput = errors.New("unsorted input")
	// ErrImputation marks a column the imputer cannot model.
	ErrImputation = errors.New("imputation failed")
	// ErrInsufficientData marks a regression with fewer than two points.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUndefinedAggregate marks a mean or weighted mean with nothing to average.
	ErrUndefinedAggregate = errors.New("undefined aggregate")
)
