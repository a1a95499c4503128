//go:build windows

package fsx

import (
	"golang.org/x/sys/windows"
)

// osReplace: MoveFileEx(REPLACE_EXISTING|WRITE_THROUGH)，最佳努力的原子替换。
func osReplace(tmpPath, dest string) error {
	from, err := windows.UTF16PtrFromString(tmpPath)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(dest)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}

// Windows 上目录 fsync 不可用。
func syncDir(dir string) error { return nil }
