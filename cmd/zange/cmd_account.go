package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zange-app/zange/backend/internal/local/remote"
	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/pkg/normalize"
	"github.com/zange-app/zange/backend/pkg/stamps"
)

func (c *cli) signupCmd() *cobra.Command {
	var nickname string
	var useRemote bool
	cmd := &cobra.Command{
		Use:   "signup <email> <password>",
		Short: "Create an account and sign in",
		Long: `Create a local account and make it the active user.

With --remote the account is created on the server instead; the local client
then acts as a shadow user keyed by the server email.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if useRemote {
				u, err := c.client.Signup(ctx, args[0], args[1], nickname)
				if err != nil {
					return err
				}
				return c.adoptServerUser(cmd, u)
			}
			u, err := c.resolver.SignUp(ctx, args[0], args[1], nickname)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s [%s]\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "Display name (defaults to the email)")
	cmd.Flags().BoolVar(&useRemote, "remote", false, "Sign up on the server")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var useRemote bool
	cmd := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if useRemote {
				u, err := c.client.Login(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return c.adoptServerUser(cmd, u)
			}
			u, err := c.resolver.SignIn(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s [%s]\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useRemote, "remote", false, "Sign in on the server")
	return cmd
}

// adoptServerUser switches the local identity to the shadow user of the
// server account.
func (c *cli) adoptServerUser(cmd *cobra.Command, u *remote.User) error {
	ctx := cmd.Context()
	if u == nil {
		return fmt.Errorf("server returned no user")
	}
	if err := c.resolver.SignOut(ctx); err != nil {
		return err
	}
	if err := c.store.SetActiveOwner(ctx, normalize.Email(u.Email)); err != nil {
		return err
	}
	actor, err := c.resolver.ResolveActingUser(ctx)
	if err != nil {
		return err
	}
	if actor == nil {
		return errNotSignedIn
	}
	fmt.Fprintf(cmd.OutOrStdout(), "signed in on the server as %s [%s]\n", actor.Email, actor.ID)
	return nil
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out locally and end any server session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			token, err := c.store.SessionToken(ctx)
			if err != nil {
				return err
			}
			if token != "" {
				if err := c.client.Logout(ctx); err != nil {
					c.logger.Warn("Server logout failed", zap.Error(err))
					if err := c.store.SetSessionToken(ctx, ""); err != nil {
						return err
					}
				}
			}
			if err := c.resolver.SignOut(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.resolver.ResolveActingUser(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if actor == nil {
				fmt.Fprintln(out, store.AnonymousName)
				return nil
			}
			fmt.Fprintf(out, "%s %s [%s]\n", actor.Profile.Nickname, actor.Email, actor.ID)
			return nil
		},
	}
}

func (c *cli) profileCmd() *cobra.Command {
	var p store.Profile
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Long: `Without flags, prints the acting user's profile. With flags, updates the
given fields and keeps the rest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actingUser(cmd)
			if err != nil {
				return err
			}
			next := actor.Profile
			flags := cmd.Flags()
			if flags.Changed("nickname") {
				next.Nickname = p.Nickname
			}
			if flags.Changed("avatar") {
				next.Avatar = p.Avatar
			}
			if flags.Changed("gender") {
				next.Gender = p.Gender
			}
			if flags.Changed("age") {
				next.Age = p.Age
			}
			if flags.Changed("bio") {
				next.Bio = p.Bio
			}
			if flags.NFlag() > 0 && next != actor.Profile {
				u, err := c.resolver.UpdateProfile(cmd.Context(), actor.ID, next)
				if err != nil {
					return err
				}
				next = u.Profile
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nickname: %s\n", next.Nickname)
			fmt.Fprintf(out, "avatar:   %s\n", next.Avatar)
			fmt.Fprintf(out, "gender:   %s\n", next.Gender)
			fmt.Fprintf(out, "age:      %s\n", next.Age)
			fmt.Fprintf(out, "bio:      %s\n", next.Bio)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Nickname, "nickname", "", "Display name")
	cmd.Flags().StringVar(&p.Avatar, "avatar", "", "Avatar image path or URL")
	cmd.Flags().StringVar(&p.Gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&p.Age, "age", "", "Age bracket")
	cmd.Flags().StringVar(&p.Bio, "bio", "", "Short bio")
	return cmd
}

func (c *cli) importLegacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-legacy <email>",
		Short: "Move the pre-account profile record under an email",
		Long: `Older clients kept a single global profile. This moves it under the given
email once; later runs do nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			moved, err := c.store.ImportLegacyProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if moved {
				fmt.Fprintln(cmd.OutOrStdout(), "legacy profile imported")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to import")
			}
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write a sample zange into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded, err := c.store.SeedIfEmpty(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "seeded")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "store already has zanges")
			}
			return nil
		},
	}
}

func (c *cli) stampsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stamps",
		Short: "List reaction keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, k := range store.BuiltinReactions {
				fmt.Fprintf(out, "%-10s %s\n", k, stamps.Label(k))
			}
			for _, s := range stamps.Catalog {
				fmt.Fprintf(out, "%-10s %s\n", s.Key, s.Label)
			}
			return nil
		},
	}
}
