//go:build windows
// +build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// ReportStartupError writes err to the Windows Event Log so that "net start"
// and Event Viewer show why the agent did not come up.
func ReportStartupError(source string, err error) {
	// Registering an existing source is a no-op.
	_ = eventlog.InstallAsEventCreate(source, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, openErr := eventlog.Open(source)
	if openErr != nil {
		return
	}
	defer elog.Close()

	elog.Error(1, fmt.Sprintf("VaaniAgent failed: %v", err))
}
