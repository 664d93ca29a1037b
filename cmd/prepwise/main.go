package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "doctor":
		err = cmdDoctor()
	case "config":
		err = cmdConfig()
	case "provider":
		err = cmdProvider(os.Args[2:])
	case "login":
		err = cmdLogin(os.Args[2:])
	case "logout":
		err = cmdLogout()
	case "invite":
		err = cmdInvite()
	case "progress":
		err = cmdProgress()
	case "streak":
		err = cmdStreak()
	case "mistakes":
		err = cmdMistakes(os.Args[2:])
	case "leaderboard":
		err = cmdLeaderboard(os.Args[2:])
	case "presets":
		err = cmdPresets()
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("prepwise %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Prepwise - Entrance Exam Practice with XP, Streaks and a Coach

Usage:
  prepwise <command> [arguments]

Setup Commands:
  init            Initialize prepwise (first-time setup)
  doctor          Check the local setup
  config          Show current configuration
  provider        Manage LLM providers

Daemon Commands:
  start           Start the prepwise daemon
  stop            Stop the prepwise daemon
  status          Show daemon status
  logs            View daemon logs

Learner Commands:
  login <email>   Sign in (the first login creates the account)
  login --mentor <student-email> <code>
                  Sign in as a read-only mentor
  logout          Forget the stored token
  invite          Create an invite code for a mentor
  progress        Show level, XP, streak and badges
  streak          Count today's study session
  mistakes [n]    List recent mistakes
  mistakes topics Show weak topics
  mistakes clear  Empty the mistake journal
  leaderboard [n] Show the top learners
  presets         Show the full-length exam layouts

Integration Commands:
  mcp [--user <email>] [--http <addr>]
                  Start the MCP server (stdio by default)

Other:
  help            Show this help message
  version         Show version information

Examples:
  prepwise start                     # Start daemon
  prepwise login asha@example.com    # Sign in
  prepwise provider set-key gemini   # Configure the Gemini API key
  prepwise mistakes topics           # See what to revise`)
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
