package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/kspeckhals01/browser-tab-manager/internal/adapter"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

const sessionsUsage = `Usage: tabvana sessions <command> [options]

Commands:
  list                          List saved sessions
  save <name> --tabs <file>     Save tabs as a session ("-" reads stdin)
  delete <name>                 Delete a session
`

const groupsUsage = `Usage: tabvana groups <command> [options]

Commands:
  list                          List tab groups
  save <name> --tabs <file>     Save tabs as a group ("-" reads stdin)
  delete <name>                 Delete a group
  rename <old> <new>            Rename a group
  remove-tab <name> <tab-id>    Remove one tab from a group
`

// adapterCommand runs fn against an adapter bound to the current tier.
func adapterCommand(configPath string, stderr io.Writer, fn func(ctx context.Context, a *adapter.Adapter) int) int {
	return withRuntime(configPath, stderr, func(ctx context.Context, rt *runtime) int {
		a, err := rt.adapter(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return fn(ctx, a)
	})
}

func runSessions(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, sessionsUsage)
		return 1
	}

	switch args[0] {
	case "list":
		return runSessionsList(args[1:], stdout, stderr)
	case "save":
		return runSessionsSave(args[1:], stdout, stderr)
	case "delete":
		return runSessionsDelete(args[1:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, sessionsUsage)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown sessions command: %s\n", args[0])
		fmt.Fprint(stdout, sessionsUsage)
		return 1
	}
}

func runSessionsList(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("sessions list", "sessions list [options]", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		sessions, err := a.Sessions(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if len(sessions) == 0 {
			fmt.Fprintln(stdout, "No saved sessions.")
			return 0
		}

		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTABS\tCREATED")
		fmt.Fprintln(w, "----\t----\t-------")
		now := time.Now()
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, len(s.Tabs), formatAge(now.Sub(s.CreatedAt)))
		}
		w.Flush()
		return 0
	})
}

func runSessionsSave(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("sessions save", "sessions save <name> --tabs <file> [options]", stderr)
	tabsPath := fs.String("tabs", "", `JSON file with the tabs to save ("-" reads stdin)`)
	positional, code, ok := parseFlags(fs, args)
	if !ok {
		return code
	}
	if len(positional) != 1 {
		fs.Usage()
		return 1
	}
	tabs, err := readTabs(*tabsPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		result, err := a.SaveSession(ctx, positional[0], tabs)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return printResult(stdout, stderr, "session", positional[0], "Saved", result)
	})
}

func runSessionsDelete(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("sessions delete", "sessions delete <name> [options]", stderr)
	positional, code, ok := parseFlags(fs, args)
	if !ok {
		return code
	}
	if len(positional) != 1 {
		fs.Usage()
		return 1
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		result, err := a.DeleteSession(ctx, positional[0])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return printResult(stdout, stderr, "session", positional[0], "Deleted", result)
	})
}

func runGroups(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, groupsUsage)
		return 1
	}

	switch args[0] {
	case "list":
		return runGroupsList(args[1:], stdout, stderr)
	case "save":
		return runGroupsSave(args[1:], stdout, stderr)
	case "delete":
		return runGroupsDelete(args[1:], stdout, stderr)
	case "rename":
		return runGroupsRename(args[1:], stdout, stderr)
	case "remove-tab":
		return runGroupsRemoveTab(args[1:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, groupsUsage)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown groups command: %s\n", args[0])
		fmt.Fprint(stdout, groupsUsage)
		return 1
	}
}

func runGroupsList(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("groups list", "groups list [options]", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		groups, err := a.Groups(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if len(groups) == 0 {
			fmt.Fprintln(stdout, "No tab groups.")
			return 0
		}

		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTABS\tCREATED")
		fmt.Fprintln(w, "----\t----\t-------")
		now := time.Now()
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%d\t%s\n", g.Name, len(g.Tabs), formatAge(now.Sub(g.CreatedAt)))
		}
		w.Flush()
		return 0
	})
}

func runGroupsSave(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("groups save", "groups save <name> --tabs <file> [options]", stderr)
	tabsPath := fs.String("tabs", "", `JSON file with the tabs to save ("-" reads stdin)`)
	positional, code, ok := parseFlags(fs, args)
	if !ok {
		return code
	}
	if len(positional) != 1 {
		fs.Usage()
		return 1
	}
	tabs, err := readTabs(*tabsPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		reached, err := a.GroupQuotaReached(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		result := model.ResultLimit
		if !reached {
			result, err = a.SaveGroup(ctx, positional[0], tabs)
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		}
		return printResult(stdout, stderr, "group", positional[0], "Saved", result)
	})
}

func runGroupsDelete(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("groups delete", "groups delete <name> [options]", stderr)
	positional, code, ok := parseFlags(fs, args)
	if !ok {
		return code
	}
	if len(positional) != 1 {
		fs.Usage()
		return 1
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		result, err := a.DeleteGroup(ctx, positional[0])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return printResult(stdout, stderr, "group", positional[0], "Deleted", result)
	})
}

func runGroupsRename(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("groups rename", "groups rename <old> <new> [options]", stderr)
	positional, code, ok := parseFlags(fs, args)
	if !ok {
		return code
	}
	if len(positional) != 2 {
		fs.Usage()
		return 1
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		result, err := a.RenameGroup(ctx, positional[0], positional[1])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return printResult(stdout, stderr, "group", positional[0], "Renamed", result)
	})
}

func runGroupsRemoveTab(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("groups remove-tab", "groups remove-tab <name> <tab-id> [options]", stderr)
	positional, code, ok := parseFlags(fs, args)
	if !ok {
		return code
	}
	if len(positional) != 2 {
		fs.Usage()
		return 1
	}
	tabID, err := strconv.Atoi(positional[1])
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid tab id %q\n", positional[1])
		return 1
	}

	return adapterCommand(*configPath, stderr, func(ctx context.Context, a *adapter.Adapter) int {
		tabs, result, err := a.RemoveTabFromGroup(ctx, positional[0], tabID)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if result == model.ResultNotFound {
			return printResult(stdout, stderr, "group", positional[0], "Updated", result)
		}
		fmt.Fprintf(stdout, "Removed tab %d from group %q (%d left, %s)\n", tabID, positional[0], len(tabs), result)
		return 0
	})
}

// printResult reports a mutation outcome. Duplicate, limit and not-found
// outcomes exit 1.
func printResult(stdout, stderr io.Writer, kind, name, verb string, result model.Result) int {
	switch result {
	case model.ResultCloud:
		fmt.Fprintf(stdout, "%s %s %q (cloud)\n", verb, kind, name)
	case model.ResultLocal:
		fmt.Fprintf(stdout, "%s %s %q (local)\n", verb, kind, name)
	case model.ResultDuplicate:
		fmt.Fprintf(stderr, "A %s named %q already exists\n", kind, name)
		return 1
	case model.ResultLimit:
		fmt.Fprintf(stderr, "Free plan limit reached: upgrade to pro to save more %ss\n", kind)
		return 1
	case model.ResultNotFound:
		fmt.Fprintf(stderr, "No %s named %q\n", kind, name)
		return 1
	default:
		fmt.Fprintf(stderr, "Error: unexpected result %q\n", result)
		return 1
	}
	return 0
}

// readTabs decodes a JSON array of tabs from path, or from stdin for "-".
func readTabs(path string) ([]model.Tab, error) {
	if path == "" {
		return nil, fmt.Errorf("--tabs is required")
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open tabs file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var tabs []model.Tab
	if err := json.NewDecoder(r).Decode(&tabs); err != nil {
		return nil, fmt.Errorf("failed to parse tabs: %w", err)
	}
	return tabs, nil
}

// formatAge formats a duration in a human-readable way.
// Examples: "just now", "5m ago", "2h ago", "3d ago"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "in the future"
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}
