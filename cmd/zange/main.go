package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zange-app/zange/backend/internal/local/aggregator"
	"github.com/zange-app/zange/backend/internal/local/feed"
	"github.com/zange-app/zange/backend/internal/local/follow"
	"github.com/zange-app/zange/backend/internal/local/identity"
	"github.com/zange-app/zange/backend/internal/local/remote"
	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/pkg/config"
	zlog "github.com/zange-app/zange/backend/pkg/logger"
)

// cli holds the flags and the components built for one invocation.
type cli struct {
	verbose bool
	offline bool

	cfg    *config.Config
	logger *zap.Logger

	// openBackend is swapped out in tests.
	openBackend func(ctx context.Context, cfg *config.Config) (store.Backend, func(), error)

	store    *store.Store
	resolver *identity.Resolver
	agg      *aggregator.Aggregator
	graph    *follow.Graph
	feed     *feed.Feed
	client   *remote.Client
	closeFn  func()
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "zange",
		Short: "Local zange client",
		Long: `Post zanges, react, comment and follow people from the terminal.

Records live in a local store (ZANGE_STORE, or MongoDB when MONGO_URI is set).
When a server session exists (see "login --remote"), it identifies the acting
user and the remote feed is available through "feed" and "remote-react".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&c.offline, "offline", false, "Do not ask the server who is signed in")

	root.AddCommand(
		c.postCmd(), c.editCmd(), c.deleteCmd(), c.reactCmd(), c.commentCmd(), c.showCmd(),
		c.timelineCmd(), c.searchCmd(), c.mineCmd(), c.userCmd(),
		c.followCmd(), c.unfollowCmd(), c.notificationsCmd(),
		c.signupCmd(), c.loginCmd(), c.logoutCmd(), c.whoamiCmd(), c.profileCmd(),
		c.importLegacyCmd(), c.seedCmd(), c.stampsCmd(),
		c.feedCmd(), c.remoteReactCmd(),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	if c.cfg == nil {
		c.cfg = config.Load()
	}
	if c.logger == nil {
		logger, err := zlog.New(c.cfg.Env, c.verbose)
		if err != nil {
			return err
		}
		c.logger = logger
	}
	if c.openBackend == nil {
		c.openBackend = openStoreBackend
	}

	backend, closeFn, err := c.openBackend(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	c.closeFn = closeFn
	c.store = store.New(backend)
	c.client = remote.NewClient(c.cfg.APIBaseURL, c.store)

	opts := []identity.Option{identity.WithLogger(c.logger)}
	if !c.offline {
		opts = append(opts, identity.WithSession(c.client))
	}
	c.resolver = identity.NewResolver(c.store, opts...)
	c.agg = aggregator.New(c.store, aggregator.NewBus(), c.logger)
	c.graph = follow.NewGraph(c.store)
	c.feed = feed.New(c.store, c.resolver)
	return nil
}

func (c *cli) close() {
	if c.closeFn != nil {
		c.closeFn()
		c.closeFn = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// openStoreBackend uses MongoDB when MONGO_URI is set and the JSON file at
// ZANGE_STORE otherwise.
func openStoreBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	if cfg.MongoURI != "" {
		client, err := config.InitMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = config.CloseMongo(client) }
		return store.NewMongoBackend(client.Database(cfg.MongoDatabase)), closeFn, nil
	}
	b, err := store.NewFileBackend(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return b, func() {}, nil
}

func main() {
	root := newRootCmd(&cli{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
