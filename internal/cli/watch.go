package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/listview"
	"github.com/meetai/meetai/internal/query"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a list on screen and refresh it when it changes",
	}

	cmd.AddCommand(newWatchListCmd(domain.EntityAgents))
	cmd.AddCommand(newWatchListCmd(domain.EntityMeetings))
	return cmd
}

func newWatchListCmd(kind domain.EntityKind) *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Watch your %s", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := lf.filter(cmd, kind)
			if err != nil {
				return err
			}
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			changed := make(chan struct{}, 1)
			remove := s.cache.OnInvalidate(func(k query.Key) {
				if k.In(kind, query.ScopeList) {
					select {
					case changed <- struct{}{}:
					default:
					}
				}
			})
			defer remove()

			live := listview.NewLiveInvalidator(s.cache, log)
			stream, err := s.api.Subscribe(ctx, live.Apply)
			if err != nil {
				return err
			}
			defer stream.Close()

			out := cmd.OutOrStdout()
			render := func() error {
				fmt.Fprintf(out, "\n%s  (%s)\n", time.Now().Format(time.TimeOnly), kind)
				var err error
				switch kind {
				case domain.EntityAgents:
					_, err = listPage(ctx, out, s.fetch.Agents, listview.AgentTable(time.Now), listview.AgentsError, f, "/agents")
				default:
					_, err = listPage(ctx, out, s.fetch.Meetings, listview.MeetingTable(time.Now), listview.MeetingsError, f, "/meetings")
				}
				return err
			}
			return watchLoop(ctx, out, render, changed, stream.Done(), stream.Err)
		},
	}

	lf.register(cmd, kind)
	return cmd
}

// watchLoop renders once and again after every change until ctx is done or
// the stream ends.
func watchLoop(ctx context.Context, w io.Writer, render func() error, changed <-chan struct{}, done <-chan struct{}, streamErr func() error) error {
	if err := render(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			if err := streamErr(); err != nil {
				return err
			}
			fmt.Fprintln(w, "event stream closed")
			return nil
		case <-changed:
			if err := render(); err != nil {
				return err
			}
		}
	}
}
