package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the configured Solidtime instance",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if a.cfg.ClientID == "" {
			return fmt.Errorf("no client_id configured; set it in %s", configPath())
		}
		if err := a.auth.Login(ctx); err != nil {
			return err
		}
		fmt.Println("Logged in")
		// Pick an organization up front so the first start does not need an
		// extra round trip.
		memberships, err := a.client.GetMemberships(ctx)
		if err == nil && len(memberships) > 0 {
			if err := a.settings.SetOrganizationID(memberships[0].Organization.ID); err == nil {
				_ = a.settings.SetMemberID(memberships[0].ID)
			}
			fmt.Printf("Using organization %s\n", memberships[0].Organization.Name)
		}
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the local session",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.auth.Logout(); err != nil {
			return err
		}
		a.notif.Hide()
		fmt.Println("Logged out")
		return nil
	}),
}
