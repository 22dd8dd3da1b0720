package pipeline

import amerrors "github.com/aman-cerp/vaultindex/internal/errors"

func errQueueFull(path string) error {
	return amerrors.QueueFullError(path)
}

func errAlreadyRunning() error {
	return amerrors.New(amerrors.ErrCodeAlreadyRunning, "pipeline is already running", nil)
}

func errNotInitialized() error {
	return amerrors.New(amerrors.ErrCodeNotInitialized, "pipeline has not been started", nil)
}

func errCancelled() error {
	return amerrors.New(amerrors.ErrCodeCancelled, "operation was cancelled", nil)
}

func errFileProcessing(path, reason string, cause error) error {
	return amerrors.New(amerrors.ErrCodeFileProcessing, "failed to process "+path+": "+reason, cause)
}

func errIO(msg string, cause error) error {
	return amerrors.New(amerrors.ErrCodeFileNotFound, msg, cause)
}
