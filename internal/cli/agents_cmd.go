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

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"agent"},
		Short:   "Manage your agents",
	}

	cmd.AddCommand(newAgentsListCmd())
	cmd.AddCommand(newAgentsGetCmd())
	cmd.AddCommand(newAgentsCreateCmd())
	cmd.AddCommand(newAgentsUpdateCmd())
	return cmd
}

func newAgentsListCmd() *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := lf.filter(cmd, domain.EntityAgents)
			if err != nil {
				return err
			}
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tbl := listview.AgentTable(time.Now)
			tbl.OnActivate = func(a domain.AgentListItem) {
				fmt.Fprintln(out)
				printAgent(out, a)
			}
			items, err := listPage(cmd.Context(), out, s.fetch.Agents, tbl, listview.AgentsError, f, "/agents")
			if err != nil {
				return err
			}
			return activate(tbl, items, lf.open)
		},
	}

	lf.register(cmd, domain.EntityAgents)
	cmd.Flags().IntVar(&lf.open, "open", 0, "show the details of row N")
	return cmd
}

func newAgentsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			a, err := s.fetch.Agent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printAgent(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func newAgentsCreateCmd() *cobra.Command {
	var in domain.AgentInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			return mutate(cmd, s, in, func(ctx context.Context, in domain.AgentInput) error {
				a, err := s.disp.CreateAgent(ctx, in)
				if err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), a.ID)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "agent name")
	cmd.Flags().StringVar(&in.Instructions, "instructions", "", "how the agent behaves in meetings")
	return cmd
}

func newAgentsUpdateCmd() *cobra.Command {
	var in domain.AgentInput

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			// Unset flags keep the current values.
			current, err := s.fetch.Agent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				in.Name = current.Name
			}
			if !cmd.Flags().Changed("instructions") {
				in.Instructions = current.Instructions
			}
			return mutate(cmd, s, in, func(ctx context.Context, in domain.AgentInput) error {
				_, err := s.disp.UpdateAgent(ctx, args[0], in)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "new name")
	cmd.Flags().StringVar(&in.Instructions, "instructions", "", "new instructions")
	return cmd
}

func printAgent(w io.Writer, a domain.AgentListItem) {
	field(w, "ID", a.ID)
	field(w, "Name", a.Name)
	field(w, "Instructions", a.Instructions)
	field(w, "Meetings", fmt.Sprint(a.MeetingCount))
	field(w, "Created", a.CreatedAt.Local().Format(time.DateTime))
	field(w, "Updated", a.UpdatedAt.Local().Format(time.DateTime))
}
