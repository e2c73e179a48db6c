package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zange-app/zange/backend/internal/local/remote"
	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/pkg/stamps"
)

func (c *cli) feedCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List the shared feed from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := c.client.Feed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "no zanges")
				return nil
			}
			for _, it := range items {
				fmt.Fprintf(out, "#%d %s %s\n", it.ID, it.Owner.Nickname, it.CreatedAt.Local().Format("2006/01/02 15:04"))
				fmt.Fprintf(out, "  %s\n", it.Text)
				if len(it.Targets) > 0 {
					fmt.Fprintf(out, "  to: %s\n", strings.Join(it.Targets, "、"))
				}
				parts := make([]string, 0, len(store.BuiltinReactions))
				for _, k := range store.BuiltinReactions {
					parts = append(parts, fmt.Sprintf("%s %d", stamps.Label(k), it.ReactionCounts[k]))
				}
				fmt.Fprintf(out, "  %s  comments %d\n", strings.Join(parts, "  "), it.CommentsCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of items (server caps at 100)")
	return cmd
}

func (c *cli) remoteReactCmd() *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "remote-react <zange-id> <type>",
		Short: "React to a server zange",
		Long: `React to a zange on the server. The server session identifies you when
present; otherwise the acting local user's email and nickname are sent.

Actions: toggle (default), add, remove.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid zange id %q", args[0])
			}
			req := remote.ReactRequest{ZangeID: uint(id), Type: args[1], Action: action}
			if actor, err := c.resolver.ResolveActingUser(ctx); err != nil {
				return err
			} else if actor != nil {
				req.UserEmail = actor.Email
				req.UserNickname = actor.Profile.Nickname
			}

			res, err := c.client.React(ctx, req)
			if err != nil {
				return err
			}
			s := res.Summary
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "reacted: %t\n", res.My.Reacted)
			fmt.Fprintf(out, "pray %d  laugh %d  sympathy %d  growth %d  other %d\n",
				s.Pray, s.Laugh, s.Sympathy, s.Growth, s.Other)
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", "toggle", "toggle, add or remove")
	return cmd
}
