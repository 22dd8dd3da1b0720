package vectorstore

import amerrors "github.com/aman-cerp/vaultindex/internal/errors"

func errInvalidInput(msg string) error {
	return amerrors.New(amerrors.ErrCodeInvalidInput, msg, nil)
}

func errFileNotFound(path string, cause error) error {
	return amerrors.New(amerrors.ErrCodeFileNotFound, "batch file not found: "+path, cause)
}

func errChecksumMismatch(file string) error {
	return amerrors.New(amerrors.ErrCodeChecksumMismatch, "checksum mismatch in "+file, nil)
}

func errSchemaVersion(file string) error {
	return amerrors.New(amerrors.ErrCodeSchemaVersion, "incompatible schema version in "+file, nil)
}

func errIDMismatch(file, expected, got string) error {
	return amerrors.New(amerrors.ErrCodeIDMismatch,
		"id mismatch in "+file+": expected "+expected+" got "+got, nil)
}

func errStorageWrite(msg string, cause error) error {
	return amerrors.New(amerrors.ErrCodeStorageWrite, msg, cause)
}

func errSerialization(msg string, cause error) error {
	return amerrors.New(amerrors.ErrCodeSerialization, msg, cause)
}

func errFileLocked(msg string, cause error) error {
	return amerrors.New(amerrors.ErrCodeFileLocked, msg, cause)
}
