// Command smoke drives the full sign-in flow against a running API: it signs
// in, waits for the session provider to resolve the profile, and checks the
// access gate's decisions for each dashboard.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/session"
	"volunteerhub.org/internal/session/remote"
)

func main() {
	baseURL := os.Getenv("VHUB_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	email := os.Getenv("VHUB_SMOKE_EMAIL")
	password := os.Getenv("VHUB_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("VHUB_SMOKE_EMAIL and VHUB_SMOKE_PASSWORD must be set")
	}

	client := remote.New(baseURL)
	provider := session.NewProvider(client, client)
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	provider.Initialize(ctx)

	// Before sign-in the gate must park protected surfaces on the auth page.
	if out := session.Evaluate(provider.State(), auth.RequireNGOOrAdmin); out.Decision != session.DecisionDenyRedirectToAuth {
		log.Fatalf("pre-auth gate: expected redirect to %s, got %+v", session.PathAuth, out)
	}

	if err := provider.SignIn(ctx, email, password); err != nil {
		log.Fatalf("sign in: %v", err)
	}
	state, err := waitSettled(ctx, provider)
	if err != nil {
		log.Fatalf("session provider: %v", err)
	}
	if state.Profile == nil {
		log.Fatalf("signed in but no profile resolved (missing=%v)", state.ProfileMissing)
	}

	role := state.Profile.Role
	fmt.Printf("signed in as %s (%s)\n", state.Profile.Name, role)

	checks := []struct {
		name string
		req  auth.Requirement
	}{
		{"volunteer surface", auth.RequireVolunteer},
		{"ngo dashboard", auth.RequireNGOOrAdmin},
		{"admin dashboard", auth.RequireAdmin},
	}
	for _, check := range checks {
		out := session.Evaluate(provider.State(), check.req)
		switch out.Decision {
		case session.DecisionAllow:
			fmt.Printf("  %-18s allow\n", check.name)
		case session.DecisionDenyRoleHome:
			fmt.Printf("  %-18s deny, redirect %s\n", check.name, out.RedirectTo)
			if out.RedirectTo != session.RoleHome(role) {
				log.Fatalf("%s: redirect %s does not match role home %s", check.name, out.RedirectTo, session.RoleHome(role))
			}
		default:
			log.Fatalf("%s: unexpected decision %+v", check.name, out)
		}
	}

	if err := provider.SignOut(ctx); err != nil {
		log.Fatalf("sign out: %v", err)
	}
	if out := session.Evaluate(provider.State(), auth.AnyAuthenticated); out.Decision != session.DecisionDenyRedirectToAuth {
		log.Fatalf("post-signout gate: expected redirect to auth, got %+v", out)
	}

	fmt.Println("smoke test passed")
}

// waitSettled polls until the provider leaves the loading state.
func waitSettled(ctx context.Context, provider *session.Provider) (session.State, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		state := provider.State()
		if !state.Loading {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}
