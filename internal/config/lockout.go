package config

import (
	"os"
	"path/filepath"
	"time"
)

const lockFileName = ".lock"

// Lock drops a lock file that blocks further pipeline runs until an operator
// clears it. It is the kill switch for a misbehaving model or a quota burn.
func Lock(configDir string) error {
	path := filepath.Join(configDir, lockFileName)
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	return os.WriteFile(path, []byte(stamp), 0600)
}

// Unlock clears the lock file. Unlocking an unlocked install is a no-op.
func Unlock(configDir string) error {
	err := os.Remove(filepath.Join(configDir, lockFileName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Locked reports whether the install is locked out, with the lock timestamp
// when one can be read.
func Locked(configDir string) (bool, string) {
	data, err := os.ReadFile(filepath.Join(configDir, lockFileName))
	if err != nil {
		return false, ""
	}
	stamp := string(data)
	if len(stamp) > 0 && stamp[len(stamp)-1] == '\n' {
		stamp = stamp[:len(stamp)-1]
	}
	return true, stamp
}
