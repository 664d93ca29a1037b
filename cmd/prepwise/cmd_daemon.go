package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/config"
)

const (
	daemonBinary = "prepwised"
	pidFile      = "prepwised.pid"
	logTailBytes = 4096
)

// cmdStart starts the daemon in the background
func cmdStart() error {
	if isRunning() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	prepwiseDir, err := config.EnsurePrepwiseDir()
	if err != nil {
		return fmt.Errorf("setup prepwise directory: %w", err)
	}

	binary, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(binary)
	cmd.Dir = prepwiseDir
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", daemonAddr())
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'prepwise logs')")
}

// cmdStop sends SIGTERM to the pid in prepwised.pid and waits for the
// health endpoint to go away
func cmdStop() error {
	if !isRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	prepwiseDir, err := config.PrepwiseDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(prepwiseDir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning() {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status
func cmdStatus() error {
	if !isRunning() {
		fmt.Println("Status: stopped")
		return nil
	}

	var status struct {
		Status          string   `json:"status"`
		Version         string   `json:"version"`
		UptimeSeconds   int      `json:"uptime_seconds"`
		Storage         string   `json:"storage"`
		LLMProviders    []string `json:"llm_providers"`
		DefaultProvider string   `json:"default_provider"`
		Coach           bool     `json:"coach"`
	}
	if err := newClient(daemonAddr(), "").do(http.MethodGet, "/v1/status", nil, &status); err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	providers := "none"
	if len(status.LLMProviders) > 0 {
		providers = strings.Join(status.LLMProviders, ", ") + " (default " + status.DefaultProvider + ")"
	}
	coach := "off"
	if status.Coach {
		coach = "on"
	}

	fmt.Printf("Status:    %s\n", status.Status)
	fmt.Printf("Version:   %s\n", status.Version)
	fmt.Printf("Uptime:    %s\n", time.Duration(status.UptimeSeconds)*time.Second)
	fmt.Printf("Storage:   %s\n", status.Storage)
	fmt.Printf("Providers: %s\n", providers)
	fmt.Printf("Coach:     %s\n", coach)
	fmt.Printf("Address:   %s\n", daemonAddr())
	return nil
}

// cmdLogs prints the tail of the daemon log
func cmdLogs() error {
	prepwiseDir, err := config.PrepwiseDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(prepwiseDir, "logs", "prepwised.log")
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := max(info.Size()-logTailBytes, 0)
	if _, err := file.Seek(offset, 0); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	// Skip the partial first line
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}

// findDaemonBinary locates the prepwised binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), daemonBinary)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	locations := []string{
		"/usr/local/bin/" + daemonBinary,
		"./" + daemonBinary,
		"./cmd/prepwised/" + daemonBinary,
	}
	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s binary not found (build with 'go build ./cmd/prepwised')", daemonBinary)
}
