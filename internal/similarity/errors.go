package similarity

import (
	"strconv"

	amerrors "github.com/aman-cerp/vaultindex/internal/errors"
)

func errEmptyVector() error {
	return amerrors.New(amerrors.ErrCodeEmptyVector, "vector must not be empty", nil)
}

func errDimensionMismatch(q, t int) error {
	return amerrors.New(amerrors.ErrCodeDimensionMismatch,
		"vector dimension mismatch: query has a different length than target", nil).
		WithDetail("query_dim", strconv.Itoa(q)).WithDetail("target_dim", strconv.Itoa(t))
}

func errInvalidVector(reason string) error {
	return amerrors.New(amerrors.ErrCodeInvalidVector, "vector contains "+reason, nil)
}

func errZeroMagnitude() error {
	return amerrors.New(amerrors.ErrCodeZeroMagnitude, "vector has zero magnitude", nil)
}

func errInvalidK() error {
	return amerrors.New(amerrors.ErrCodeInvalidK, "k must be greater than zero", nil)
}

func errInvalidThreshold() error {
	return amerrors.New(amerrors.ErrCodeInvalidThreshold, "min_threshold must lie in [-1, 1]", nil)
}
