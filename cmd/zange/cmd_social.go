package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zange-app/zange/backend/internal/local/store"
)

var errNotSignedIn = errors.New("not signed in; run \"zange login\" first")

func (c *cli) actingUser(cmd *cobra.Command) (*store.User, error) {
	actor, err := c.resolver.ResolveActingUser(cmd.Context())
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, errNotSignedIn
	}
	return actor, nil
}

func (c *cli) followCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Follow a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actingUser(cmd)
			if err != nil {
				return err
			}
			if err := c.graph.Follow(cmd.Context(), actor.ID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "following %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) unfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <user-id>",
		Short: "Stop following a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actingUser(cmd)
			if err != nil {
				return err
			}
			if err := c.graph.Unfollow(cmd.Context(), actor.ID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unfollowed %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show a user page: profile, follow counts and public zanges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := c.store.User(ctx, args[0])
			if err != nil {
				return err
			}
			following, err := c.graph.Following(ctx, u.ID)
			if err != nil {
				return err
			}
			followers, err := c.graph.Followers(ctx, u.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%s]\n", u.Profile.Nickname, u.ID)
			if u.Profile.Bio != "" {
				fmt.Fprintf(out, "  %s\n", u.Profile.Bio)
			}
			fmt.Fprintf(out, "  following %d  followers %d\n", len(following), len(followers))

			if viewer, err := c.resolver.ResolveActingUser(ctx); err != nil {
				return err
			} else if viewer != nil && viewer.ID != u.ID {
				ok, err := c.graph.IsFollowing(ctx, viewer.ID, u.ID)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(out, "  you follow this user")
				}
			}

			posts, err := c.feed.ListUserPosts(ctx, u.ID)
			if err != nil {
				return err
			}
			return c.printPosts(cmd, posts)
		},
	}
}

func (c *cli) notificationsCmd() *cobra.Command {
	var readAll bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List your notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := c.actingUser(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var list []store.Notification
			if readAll {
				// The list is shown as it was, so new items still stand out once.
				if list, err = c.agg.MarkAllRead(ctx, actor.ID); err != nil {
					return err
				}
			} else if list, err = c.store.Notifications(ctx, actor.ID); err != nil {
				return err
			}
			unread, err := c.agg.UnreadCount(ctx, actor.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "unread: %d\n", unread)
			for _, n := range list {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s %s (#%d)\n", mark, n.Timestamp.Local().Format("2006/01/02 15:04"), n.Text, n.PostID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&readAll, "read-all", false, "Mark every notification as read")
	return cmd
}
