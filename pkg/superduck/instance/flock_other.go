//go:build !unix

package instance

import (
	"errors"
	"os"
)

var errLocked = errors.New("lock held")

// Without flock the lock is a no-op; a second process is not detected.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
