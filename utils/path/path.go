package path

import (
	"path/filepath"
	"runtime"
)

// RootPath returns the absolute project root (two levels above this file).
func RootPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("unable to resolve caller location")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}
