package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/meetai/meetai/internal/client"
	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/listview"
	"github.com/meetai/meetai/internal/query"
	"github.com/spf13/cobra"
)

// session is everything a client command needs: config, the procedure
// client, and the list layer over one query cache.
type session struct {
	cfg    config.Config
	server string
	api    *client.Client
	cache  *query.Client
	fetch  *listview.Fetcher
	disp   *listview.Dispatcher
	nav    *navigator
}

// openSession builds a session for cmd. With requireAuth, a missing token
// fails before any request is made.
func openSession(cmd *cobra.Command, requireAuth bool) (*session, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	base := cfg.Client.BaseURL
	if serverURL != "" {
		base = serverURL
	}
	base = strings.TrimRight(base, "/")

	token, err := loadToken(base)
	if err != nil {
		log.Warn().Err(err).Msg("could not read keychain")
	}
	if requireAuth && token == "" {
		return nil, domain.Unauthorized("Not signed in, run `meetai signin` first")
	}

	api := client.New(base, log, client.WithToken(token))
	cache := query.New(query.NewMemoryStore(), log)
	nav := &navigator{}
	s := &session{
		cfg:    cfg,
		server: base,
		api:    api,
		cache:  cache,
		fetch:  listview.NewFetcher(api, cache),
		nav:    nav,
	}
	s.disp = listview.NewDispatcher(api, cache, nav, notifier{w: cmd.ErrOrStderr()}, log)
	return s, nil
}

// follow renders the view a failed mutation navigated to.
func (s *session) follow(ctx context.Context, w io.Writer) {
	if s.nav.path != listview.UpgradePath {
		return
	}
	u, err := listview.LoadUpgrade(ctx, s.fetch)
	if err != nil {
		fmt.Fprintln(w, listview.GenericError.Render())
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, u.Render())
	fmt.Fprintln(w, "\nRun `meetai upgrade --checkout <product-id>` to upgrade.")
}

// navigator remembers the last requested path. Commands render it once the
// failed call returns.
type navigator struct {
	path string
}

func (n *navigator) Navigate(path string) { n.path = path }

// notifier prints mutation results.
type notifier struct {
	w io.Writer
}

func (n notifier) Success(msg string) { fmt.Fprintln(n.w, "✓ "+msg) }
func (n notifier) Error(msg string)   { fmt.Fprintln(n.w, "✗ "+msg) }
