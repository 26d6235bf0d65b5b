package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-chronos/internal/model"
)

func (a *app) loginCmd() *cobra.Command {
	var idToken string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Google ID token",
		Long: `Exchange a Google ID token for a Chronos session and store the
session token in the config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.api.LoginGoogle(cmd.Context(), idToken)
			if err != nil {
				return err
			}
			if err := a.store.SetToken(session.Token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "signed in as %s (session expires %s)\n", displayName(session.User), session.ExpiresAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token")
	_ = cmd.MarkFlagRequired("id-token")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			if err := a.api.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.SetToken(""); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed out")
			return nil
		}),
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			u, err := a.api.CheckAuth(cmd.Context())
			if err != nil {
				return err
			}
			printUser(a, u)
			return nil
		}),
	}
}

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			u, err := a.api.Profile(cmd.Context())
			if err != nil {
				return err
			}
			printUser(a, u)
			return nil
		}),
	}

	var name, avatarPath string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change your display name or avatar",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			var namePtr *string
			if cmd.Flags().Changed("name") {
				namePtr = &name
			}
			if namePtr == nil && avatarPath == "" {
				return fmt.Errorf("nothing to update, pass --name or --avatar")
			}

			var u *model.User
			var err error
			if avatarPath != "" {
				f, openErr := os.Open(avatarPath)
				if openErr != nil {
					return fmt.Errorf("open avatar: %w", openErr)
				}
				defer f.Close()
				u, err = a.api.UpdateProfile(cmd.Context(), namePtr, f, filepath.Base(avatarPath))
			} else {
				u, err = a.api.UpdateProfile(cmd.Context(), namePtr, nil, "")
			}
			if err != nil {
				return err
			}
			printUser(a, u)
			return nil
		}),
	}
	update.Flags().StringVar(&name, "name", "", "new display name")
	update.Flags().StringVar(&avatarPath, "avatar", "", "path to a PNG, JPEG, GIF, or WebP image")
	cmd.AddCommand(update)
	return cmd
}

func displayName(u model.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func printUser(a *app, u *model.User) {
	fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
	if u.AvatarURL != "" {
		fmt.Fprintf(a.out, "avatar: %s\n", u.AvatarURL)
	}
}
