//go:build !windows
// +build !windows

package service

// ReportStartupError is a no-op outside Windows.
func ReportStartupError(source string, err error) {}
