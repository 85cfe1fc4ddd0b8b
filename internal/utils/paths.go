package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// fallbackHome is used when $HOME is unset so path construction never fails.
const fallbackHome = "/Users/unknown"

// HomeDir returns the current user's home directory from $HOME.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return fallbackHome
}

func LibraryPath(subpath string) string {
	return filepath.Join(HomeDir(), "Library", subpath)
}

// ExpandHome replaces a leading "~" or "~/" with the home directory.
func ExpandHome(p string) string {
	if p == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(HomeDir(), p[2:])
	}
	return p
}

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Exists reports whether anything, including a dangling symlink, is at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
