//go:build windows

package lock

import (
	"errors"

	"golang.org/x/sys/windows"
)

// processExists opens pid with the least access right that still proves
// it is running
func processExists(pid int) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return errors.Is(err, windows.ERROR_ACCESS_DENIED)
	}
	windows.CloseHandle(handle)
	return true
}
