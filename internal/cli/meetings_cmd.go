package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/listview"
	"github.com/spf13/cobra"
)

func newMeetingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meetings",
		Aliases: []string{"meeting"},
		Short:   "Manage your meetings",
	}

	cmd.AddCommand(newMeetingsListCmd())
	cmd.AddCommand(newMeetingsGetCmd())
	cmd.AddCommand(newMeetingsCreateCmd())
	cmd.AddCommand(newMeetingsUpdateCmd())
	return cmd
}

func newMeetingsListCmd() *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your meetings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := lf.filter(cmd, domain.EntityMeetings)
			if err != nil {
				return err
			}
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tbl := listview.MeetingTable(time.Now)
			tbl.OnActivate = func(m domain.MeetingListItem) {
				fmt.Fprintln(out)
				printMeeting(out, m)
			}
			items, err := listPage(cmd.Context(), out, s.fetch.Meetings, tbl, listview.MeetingsError, f, "/meetings")
			if err != nil {
				return err
			}
			return activate(tbl, items, lf.open)
		},
	}

	lf.register(cmd, domain.EntityMeetings)
	cmd.Flags().IntVar(&lf.open, "open", 0, "show the details of row N")
	return cmd
}

func newMeetingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			m, err := s.fetch.Meeting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printMeeting(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newMeetingsCreateCmd() *cobra.Command {
	var in domain.MeetingInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			return mutate(cmd, s, in, func(ctx context.Context, in domain.MeetingInput) error {
				m, err := s.disp.CreateMeeting(ctx, in)
				if err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), m.ID)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "meeting name")
	cmd.Flags().StringVar(&in.AgentID, "agent", "", "ID of the agent that joins the meeting")
	return cmd
}

func newMeetingsUpdateCmd() *cobra.Command {
	var (
		in     domain.MeetingInput
		status string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			current, err := s.fetch.Meeting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				in.Name = current.Name
			}
			if !cmd.Flags().Changed("agent") {
				in.AgentID = current.AgentID
			}
			in.Status = domain.MeetingStatus(status)
			return mutate(cmd, s, in, func(ctx context.Context, in domain.MeetingInput) error {
				_, err := s.disp.UpdateMeeting(ctx, args[0], in)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "new name")
	cmd.Flags().StringVar(&in.AgentID, "agent", "", "new agent ID")
	cmd.Flags().StringVar(&status, "status", "", "new status (upcoming, active, completed, processing, canceled)")
	return cmd
}

func printMeeting(w io.Writer, m domain.MeetingListItem) {
	field(w, "ID", m.ID)
	field(w, "Name", m.Name)
	field(w, "Agent", fmt.Sprintf("%s (%s)", m.AgentName, m.AgentID))
	field(w, "Status", m.Status.Label())
	field(w, "Duration", listview.FormatDuration(m.DurationSeconds))
	if m.StartedAt != nil {
		field(w, "Started", m.StartedAt.Local().Format(time.DateTime))
	}
	if m.EndedAt != nil {
		field(w, "Ended", m.EndedAt.Local().Format(time.DateTime))
	}
	field(w, "Created", m.CreatedAt.Local().Format(time.DateTime))
	if m.Status == domain.MeetingCanceled {
		fmt.Fprintln(w)
		fmt.Fprintln(w, listview.MeetingCanceled.Render())
	}
}
