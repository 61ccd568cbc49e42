package app

import (
	"context"
	"fmt"
	"os"
)

// Login authenticates against the backend and persists the bearer token.
func (a *App) Login(ctx context.Context, email, password string) error {
	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}
	client := a.newAPIClient(sessions)

	resp, err := client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := sessions.Set(resp.Token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Logged in as %s <%s>\n", resp.Advisor.Name, resp.Advisor.Email)
	return nil
}

// Logout clears the stored session. Clearing an absent session succeeds.
func (a *App) Logout(ctx context.Context) error {
	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}
	if err := sessions.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "Logged out.")
	return nil
}

// Whoami prints the advisor identity attached to the stored session.
func (a *App) Whoami(ctx context.Context) error {
	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}
	client := a.newAPIClient(sessions)

	resp, err := client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s <%s>\n", resp.Advisor.Name, resp.Advisor.Email)
	return nil
}
