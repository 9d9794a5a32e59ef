package main

import (
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags.
// Example: go build -ldflags="-X main.Version=v0.3.0" -o tabvana ./cmd
var Version = "dev"

// stdin is read by commands that accept "--tabs -".
var stdin io.Reader = os.Stdin

const usage = `tabvana - save browser sessions and tab groups, locally or in the cloud

Usage:
  tabvana <command> [options]

Commands:
  init                          Write a default config file
  login --user-id <id> --email <email>
                                Cache the signed-in identity
  logout                        Forget the cached identity
  tier                          Show the current tier (migrates groups on upgrade)
  profile                       Show the cloud profile
  sessions list                 List saved sessions
  sessions save <name> --tabs <file>
                                Save tabs as a session
  sessions delete <name>        Delete a session
  groups list                   List tab groups
  groups save <name> --tabs <file>
                                Save tabs as a group
  groups delete <name>          Delete a group
  groups rename <old> <new>     Rename a group
  groups remove-tab <name> <tab-id>
                                Remove one tab from a group
  migrate                       Move local groups to the cloud
  db migrate                    Apply cloud schema migrations
  serve                         Run the WebSocket bridge for the popup
  token                         Generate a bridge token
  version                       Print the version

Every command accepts --config <path> (default: ~/.tabvana/config.toml).
Run 'tabvana <command> --help' for more information on a command.
`

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	switch args[1] {
	case "init":
		return runInit(args[2:], stdout, stderr)
	case "login":
		return runLogin(args[2:], stdout, stderr)
	case "logout":
		return runLogout(args[2:], stdout, stderr)
	case "tier":
		return runTier(args[2:], stdout, stderr)
	case "profile":
		return runProfile(args[2:], stdout, stderr)
	case "sessions":
		return runSessions(args[2:], stdout, stderr)
	case "groups":
		return runGroups(args[2:], stdout, stderr)
	case "migrate":
		return runMigrate(args[2:], stdout, stderr)
	case "db":
		if len(args) < 3 || args[2] != "migrate" {
			fmt.Fprintln(stdout, "Usage: tabvana db migrate")
			return 1
		}
		return runDBMigrate(args[3:], stdout, stderr)
	case "serve":
		return runServe(args[2:], stdout, stderr)
	case "token":
		return runToken(args[2:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "tabvana %s\n", Version)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", args[1])
		fmt.Fprint(stdout, usage)
		return 1
	}
}
