package chunk

import amerrors "github.com/aman-cerp/vaultindex/internal/errors"

func newConfigError(msg string) error {
	return amerrors.New(amerrors.ErrCodeConfigInvalid, msg, nil)
}

func newChunkingError(msg string, cause error) error {
	return amerrors.New(amerrors.ErrCodeChunkingFailed, msg, cause)
}
