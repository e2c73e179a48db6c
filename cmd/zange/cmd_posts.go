package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zange-app/zange/backend/internal/local/aggregator"
	"github.com/zange-app/zange/backend/internal/local/feed"
	"github.com/zange-app/zange/backend/internal/local/identity"
	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/pkg/stamps"
)

func parsePostID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid post id %q", s)
	}
	return id, nil
}

func (c *cli) postCmd() *cobra.Command {
	var targets, tag, bg string
	var private bool
	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Post a zange",
		Long: `Post a zange as the signed-in user, or anonymously when nobody is signed in.

Targets are comma separated; full-width commas work too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := c.resolver.ResolveActingUser(ctx)
			if err != nil {
				return err
			}
			d := aggregator.Draft{
				Text:       strings.Join(args, " "),
				Targets:    aggregator.SplitTargets(targets),
				FutureTag:  tag,
				Scope:      store.ScopePublic,
				Background: bg,
			}
			if private {
				d.Scope = store.ScopePrivate
			}
			p, err := c.agg.CreatePost(ctx, d, actor, identity.Snapshot(actor))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %d\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&targets, "target", "t", "", "Who the zange is addressed to (comma separated)")
	cmd.Flags().StringVar(&tag, "tag", "", "Future tag, e.g. #集中します")
	cmd.Flags().StringVar(&bg, "bg", "", "Card background")
	cmd.Flags().BoolVar(&private, "private", false, "Only visible under \"mine\"")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var text, targets, tag, scope string
	cmd := &cobra.Command{
		Use:   "edit <post-id>",
		Short: "Edit one of your zanges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			actor, err := c.resolver.ResolveActingUser(ctx)
			if err != nil {
				return err
			}
			current, err := c.store.Post(ctx, id)
			if err != nil {
				return err
			}
			d := aggregator.Draft{Text: text, Scope: scope, FutureTag: current.FutureTag, Targets: feed.Targets(current)}
			if cmd.Flags().Changed("target") {
				d.Targets = aggregator.SplitTargets(targets)
			}
			if cmd.Flags().Changed("tag") {
				d.FutureTag = tag
			}
			p, err := c.agg.EditPost(ctx, id, d, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "New text")
	cmd.Flags().StringVarP(&targets, "target", "t", "", "New targets (comma separated)")
	cmd.Flags().StringVar(&tag, "tag", "", "New future tag")
	cmd.Flags().StringVar(&scope, "scope", "", "public or private")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete one of your zanges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			actor, err := c.resolver.ResolveActingUser(ctx)
			if err != nil {
				return err
			}
			if err := c.agg.DeletePost(ctx, id, actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func (c *cli) reactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "react <post-id> <key>",
		Short: "React to a zange with a built-in reaction or a stamp",
		Long: `React to a zange. Built-in keys are pray, laugh, sympathy and growth;
run "stamps" for the custom stamp keys. A signed-in user counts once per key.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			actor, err := c.resolver.ResolveActingUser(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			unsubscribe := c.agg.Bus().SubscribePost(id, func(e aggregator.Event) {
				if ev, ok := e.(aggregator.CountChanged); ok {
					fmt.Fprintf(out, "%s %s → %d\n", stamps.Label(ev.Key), ev.Key, ev.Count)
				}
			})
			defer unsubscribe()

			count, err := c.agg.ApplyReaction(ctx, id, args[1], actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d\n", args[1], count)
			return nil
		},
	}
}

func (c *cli) commentCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "comment <post-id> <text>",
		Short: "Comment on a zange (32 characters max)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			actor, err := c.resolver.ResolveActingUser(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			unsubscribe := c.agg.Bus().SubscribePost(id, func(e aggregator.Event) {
				if ev, ok := e.(aggregator.CommentAdded); ok {
					fmt.Fprintf(out, "comments: %d\n", ev.Count)
				}
			})
			defer unsubscribe()

			cm, err := c.agg.ApplyComment(ctx, id, name, strings.Join(args[1:], " "), actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", cm.Author, cm.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for this comment")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show one zange with all of its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			p, err := c.store.Post(ctx, id)
			if err != nil {
				return err
			}
			viewer, err := c.resolver.ResolveActingUser(ctx)
			if err != nil {
				return err
			}
			cards, err := c.feed.Cards(ctx, []store.Post{p}, viewer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printCard(out, cards[0])
			for _, cm := range p.Comments {
				fmt.Fprintf(out, "  - %s: %s (%s)\n", cm.Author, cm.Text, cm.Timestamp.Local().Format("2006/01/02 15:04"))
			}
			return nil
		},
	}
}

func (c *cli) timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "List public zanges, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := c.feed.ListTimeline(cmd.Context())
			if err != nil {
				return err
			}
			return c.printPosts(cmd, posts)
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search public zanges by text, target or tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := c.feed.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.printPosts(cmd, posts)
		},
	}
}

func (c *cli) mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine [keyword]",
		Short: "List your own zanges, private ones included",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := c.resolver.ResolveActingUser(ctx)
			if err != nil {
				return err
			}
			if actor == nil {
				return errNotSignedIn
			}
			posts, err := c.feed.ListOwnPosts(ctx, actor, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.printPosts(cmd, posts)
		},
	}
}

func (c *cli) printPosts(cmd *cobra.Command, posts []store.Post) error {
	ctx := cmd.Context()
	viewer, err := c.resolver.ResolveActingUser(ctx)
	if err != nil {
		return err
	}
	cards, err := c.feed.Cards(ctx, posts, viewer)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(cards) == 0 {
		fmt.Fprintln(out, "no zanges")
		return nil
	}
	for _, card := range cards {
		printCard(out, card)
	}
	return nil
}

func printCard(w io.Writer, card feed.Card) {
	owner := card.Owner.Nickname
	if card.Owner.OwnerID != "" {
		owner += " [" + card.Owner.OwnerID + "]"
	}
	if card.Follow.Following {
		owner += " (following)"
	}
	scope := ""
	if !card.Post.IsPublic() {
		scope = " private"
	}
	fmt.Fprintf(w, "#%d %s %s%s\n", card.Post.ID, owner, card.Post.Timestamp.Local().Format("2006/01/02 15:04"), scope)
	fmt.Fprintf(w, "  %s\n", card.Post.Text)
	if len(card.Targets) > 0 {
		fmt.Fprintf(w, "  to: %s\n", strings.Join(card.Targets, "、"))
	}
	if len(card.Tags) > 0 {
		fmt.Fprintf(w, "  tags: #%s\n", strings.Join(card.Tags, " #"))
	}
	parts := make([]string, 0, len(card.Reactions))
	for _, r := range card.Reactions {
		parts = append(parts, fmt.Sprintf("%s %d", stamps.Label(r.Key), r.Count))
	}
	fmt.Fprintf(w, "  %s  comments %d\n", strings.Join(parts, "  "), card.CommentCount)
	for _, cm := range card.Preview {
		fmt.Fprintf(w, "    %s: %s\n", cm.Author, cm.Text)
	}
}
