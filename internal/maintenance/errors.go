package maintenance

import amerrors "github.com/aman-cerp/vaultindex/internal/errors"

func errRebuildFailed(reason string, cause error) error {
	return amerrors.New(amerrors.ErrCodeRebuildFailed, "rebuild failed: "+reason, cause)
}

func errCancelled() error {
	return amerrors.New(amerrors.ErrCodeCancelled, "maintenance run was cancelled", nil)
}
