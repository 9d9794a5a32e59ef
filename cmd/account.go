package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/auth"
	"github.com/kspeckhals01/browser-tab-manager/internal/config"
	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	"github.com/kspeckhals01/browser-tab-manager/internal/identity"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

func runInit(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("init", "init [options]\n\nWrite a default config file. An existing file is left alone.", stderr)
	remoteDSN := fs.String("remote-dsn", "", "PostgreSQL connection string for cloud storage (empty: local only)")
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stdout, "Config already exists at %s\n", path)
		return 0
	}
	if err := config.WriteDefault(path, *remoteDSN); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Config written to %s\n", path)
	return 0
}

// runLogin caches the identity reported by the identity provider. A user
// signing in for the first time gets a free cloud profile, then the tier is
// resolved as it would be after the provider's callback.
func runLogin(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("login", "login --user-id <id> --email <email> [options]\n\nCache the signed-in identity.", stderr)
	userID := fs.String("user-id", "", "User ID issued by the identity provider (UUID)")
	email := fs.String("email", "", "Email address of the signed-in user")
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if _, err := uuid.Parse(*userID); err != nil {
		fmt.Fprintf(stderr, "Error: --user-id must be a UUID: %v\n", err)
		return 1
	}
	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(stderr, "Error: --email is required")
		return 1
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *runtime) int {
		id := identity.Identity{UserID: *userID, Email: strings.TrimSpace(*email)}
		if err := rt.ids.Set(ctx, id); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := rt.ensureProfile(ctx, id); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Signed in as %s\n", id.Email)
		return reportTier(ctx, rt, stdout, stderr)
	})
}

// ensureProfile creates a free profile for an identity the cloud store has
// never seen. Without one the user would resolve as expired.
func (rt *runtime) ensureProfile(ctx context.Context, id identity.Identity) error {
	if rt.remote == nil {
		return nil
	}
	existing, err := rt.remote.GetProfile(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}
	if existing != nil {
		return nil
	}
	profile := model.UserProfile{
		ID:        id.UserID,
		Email:     id.Email,
		Tier:      model.TierFree,
		CreatedAt: time.Now().UTC(),
	}
	if err := rt.remote.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	rt.logger.Info("created profile", zap.String("user_id", id.UserID))
	return nil
}

func runLogout(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("logout", "logout [options]\n\nForget the cached identity.", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *runtime) int {
		if err := rt.ids.Clear(ctx); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "Signed out")
		return 0
	})
}

func runTier(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("tier", "tier [options]\n\nShow the current tier. Local groups move to the cloud on an upgrade to pro.", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *runtime) int {
		return reportTier(ctx, rt, stdout, stderr)
	})
}

// reportTier resolves the tier, prints it and reports any local groups the
// resolution moved to the cloud.
func reportTier(ctx context.Context, rt *runtime, stdout, stderr io.Writer) int {
	state := rt.resolver().Resolve(ctx)
	printTier(stdout, state, time.Now())

	if rt.watcher == nil {
		return 0
	}
	report, err := rt.watcher.Last()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if report.Migrated+report.Skipped > 0 {
		printReport(stdout, report.Migrated, report.Skipped)
	}
	return 0
}

func printTier(w io.Writer, state entitlement.State, now time.Time) {
	fmt.Fprintf(w, "Tier: %s\n", state.Tier)
	if state.HasIdentity() {
		fmt.Fprintf(w, "Email: %s\n", state.Email)
	}
	if state.Profile == nil {
		return
	}
	end := entitlement.ActiveWindowEnd(state.Profile.TrialEndsAt, state.Profile.SubscriptionEndsAt, now)
	if days, ok := entitlement.DaysRemaining(end, now); ok {
		fmt.Fprintf(w, "Days remaining: %d\n", days)
	}
}

func printReport(w io.Writer, migrated, skipped int) {
	fmt.Fprintf(w, "Moved %d group(s) to the cloud", migrated)
	if skipped > 0 {
		fmt.Fprintf(w, " (%d already there)", skipped)
	}
	fmt.Fprintln(w)
}

func runProfile(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("profile", "profile [options]\n\nShow the cloud profile of the signed-in user.", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *runtime) int {
		a, err := rt.adapter(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		p, err := a.UserProfile(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if p == nil {
			fmt.Fprintln(stdout, "No cloud profile.")
			return 0
		}

		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\t%s\n", p.ID)
		fmt.Fprintf(w, "Email\t%s\n", p.Email)
		fmt.Fprintf(w, "Stored tier\t%s\n", p.Tier)
		fmt.Fprintf(w, "Sessions used\t%d\n", p.SessionsUsed)
		fmt.Fprintf(w, "Groups used\t%d\n", p.GroupsUsed)
		fmt.Fprintf(w, "Created\t%s\n", p.CreatedAt.Format(time.RFC3339))
		if p.TrialEndsAt != nil {
			fmt.Fprintf(w, "Trial ends\t%s\n", p.TrialEndsAt.Format(time.RFC3339))
		}
		if p.SubscriptionEndsAt != nil {
			fmt.Fprintf(w, "Subscription ends\t%s\n", p.SubscriptionEndsAt.Format(time.RFC3339))
		}
		w.Flush()
		return 0
	})
}

// runToken prints a new bridge token and the hash to put in the config.
func runToken(args []string, stdout, stderr io.Writer) int {
	fs, _ := newFlagSet("token", "token\n\nGenerate a bearer token for the WebSocket bridge.", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	token, hash, err := auth.GenerateToken()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Token: %s\n\n", token)
	fmt.Fprintln(stdout, "Add this line to your config file, then give the token to the extension:")
	fmt.Fprintf(stdout, "bridge_token_hash = %q\n", hash)
	return 0
}
