package atomicfile

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	// Ensure SHA256 is linked in for the checksum verification.
	_ "crypto/sha256"
)

// checksumFunction verifies the bytes that land on disk.
const checksumFunction = crypto.SHA256

// Write replaces path with data in one rename, so readers see either the old or the new
// contents. Missing parent directories are created.
func Write(path string, data []byte, mode os.FileMode) error {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // Standard directory mode.
		return fmt.Errorf("create parent dir: %w", err)
	}

	// go-update renames the current file aside first, so it must exist.
	created := false

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, mode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}

		if createErr = f.Close(); createErr != nil {
			return fmt.Errorf("close %s: %w", path, createErr)
		}

		created = true
	}

	hasher := checksumFunction.New()
	_, _ = hasher.Write(data)

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: mode,
		Checksum:   hasher.Sum(nil),
		Hash:       checksumFunction,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		// A failed write must not leave an empty placeholder behind.
		if created {
			_ = os.Remove(path)
		}

		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
