package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetai/meetai/internal/agents"
	"github.com/meetai/meetai/internal/auth"
	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/hooks"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/meetings"
	"github.com/meetai/meetai/internal/premium"
	"github.com/meetai/meetai/internal/server"
	"github.com/meetai/meetai/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const sessionPruneInterval = 15 * time.Minute

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Meet.AI server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			srvLog := log
			if !cmd.Flags().Changed("log-level") {
				srvLog = logging.NewStyled(cfg.Logging.Level, cfg.Logging.ConsoleStyle)
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					srvLog.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			dbPath := paths.DatabasePath(&cfg)
			db, err := store.Open(dbPath, srvLog)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			srvLog.Info().Str("path", dbPath).Msg("database ready")

			hookMgr := hooks.NewManager(srvLog)
			agentStore := store.NewAgentStore(db)
			meetingStore := store.NewMeetingStore(db)

			prem := premium.NewService(agentStore, meetingStore, store.NewSubscriptionStore(db), cfg, srvLog)
			authSvc := auth.NewService(store.NewUserStore(db), store.NewSessionStore(db), cfg.Auth, srvLog)
			srv := server.New(cfg, server.Services{
				Auth:     authSvc,
				Agents:   agents.NewService(agentStore, prem, hookMgr, srvLog),
				Meetings: meetings.NewService(meetingStore, agentStore, prem, hookMgr, srvLog),
				Premium:  prem,
			}, srvLog, server.WithHooks(hookMgr))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			watcher, err := config.NewWatcher(paths.Config, srvLog)
			if err != nil {
				return fmt.Errorf("watching config: %w", err)
			}
			defer watcher.Close()
			watcher.Subscribe(prem.Apply)
			watcher.Subscribe(srv.Apply)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := watcher.Run(gctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				authSvc.Limiter().Run(gctx)
				return nil
			})
			g.Go(func() error {
				pruneSessions(gctx, authSvc, sessionPruneInterval)
				return nil
			})
			g.Go(func() error {
				defer stop()
				return srv.Start(gctx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")

	return cmd
}

// pruneSessions drops expired sessions on every tick until ctx is done.
func pruneSessions(ctx context.Context, a *auth.Service, every time.Duration) {
	a.PruneSessions(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.PruneSessions(ctx)
		}
	}
}
