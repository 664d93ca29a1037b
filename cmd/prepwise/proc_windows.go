//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// configureDaemonProcess detaches prepwised from the parent console
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
