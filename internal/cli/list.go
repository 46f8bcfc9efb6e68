package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/listview"
	"github.com/spf13/cobra"
)

// listFlags are the filter flags of list and watch commands. --query takes
// a list URL query and the other flags override its fields.
type listFlags struct {
	query    string
	search   string
	page     int
	pageSize int
	status   string
	agent    string
	open     int
}

func (lf *listFlags) register(cmd *cobra.Command, kind domain.EntityKind) {
	cmd.Flags().StringVar(&lf.query, "query", "", "list URL query, e.g. \"?search=math&page=2\"")
	cmd.Flags().StringVar(&lf.search, "search", "", "filter by name")
	cmd.Flags().IntVar(&lf.page, "page", filter.DefaultPage, "page number")
	cmd.Flags().IntVar(&lf.pageSize, "page-size", filter.DefaultPageSize, "rows per page")
	if kind == domain.EntityMeetings {
		cmd.Flags().StringVar(&lf.status, "status", "", "filter by status (upcoming, active, completed, processing, canceled)")
		cmd.Flags().StringVar(&lf.agent, "agent", "", "filter by agent ID")
	}
}

func (lf *listFlags) filter(cmd *cobra.Command, kind domain.EntityKind) (filter.Filter, error) {
	f := filter.Parse(lf.query)
	flags := cmd.Flags()
	if flags.Changed("search") {
		f.Search = lf.search
	}
	if flags.Changed("page") {
		f.Page = lf.page
	}
	if flags.Changed("page-size") {
		f.PageSize = lf.pageSize
	}
	if flags.Changed("status") {
		st, ok := domain.ParseMeetingStatus(lf.status)
		if !ok && lf.status != "" {
			return filter.Filter{}, domain.Validation(map[string]string{"status": "Invalid status"})
		}
		f.Status = st
	}
	if flags.Changed("agent") {
		f.AgentID = lf.agent
	}
	return f.Scoped(kind).Normalize(), nil
}

// listPage loads one page into a view and renders it with its pager. The
// pager's page requests print the URL of the requested page.
func listPage[T any](ctx context.Context, w io.Writer, load func(context.Context, filter.Filter) (domain.ListResult[T], error),
	tbl listview.Table[T], failure listview.ErrorState, f filter.Filter, path string) ([]T, error) {

	v := listview.NewView(ctx, func(ctx context.Context) (domain.ListResult[T], error) {
		return load(ctx, f)
	}, failure)
	defer v.Close()

	if v.Load() == listview.StateError {
		_, _, err := v.Snapshot()
		if domain.IsKind(err, domain.KindUnauthorized) || domain.IsKind(err, domain.KindValidation) {
			return nil, err
		}
		fmt.Fprintln(w, v.Render(nil))
		return nil, reported(err)
	}

	_, res, _ := v.Snapshot()
	pager := listview.NewPager(f, res.TotalPages, func(page int) {
		fmt.Fprintf(w, "  %s\n", filter.Href(path, f.WithPage(page)))
	})
	fmt.Fprintln(w, listview.RenderPage(tbl, res, pager))
	if pager.CanPrev() || pager.CanNext() {
		fmt.Fprintln(w, "More pages:")
		pager.Prev()
		pager.Next()
	}
	return res.Items, nil
}

// activate opens row n (1-based) of items through tbl.
func activate[T any](tbl listview.Table[T], items []T, n int) error {
	if n == 0 {
		return nil
	}
	if !tbl.Activate(items, n-1) {
		return domain.Validation(map[string]string{"open": fmt.Sprintf("No row %d on this page", n)})
	}
	return nil
}

// mutate submits in through a one-shot form. Errors the dispatcher already
// reported are marked so they are not printed twice, and a plan limit shows
// the upgrade view.
func mutate[T listview.Input](cmd *cobra.Command, s *session, in T, run func(context.Context, T) error) error {
	sent := false
	form := listview.NewForm(func(ctx context.Context, in T) error {
		sent = true
		return run(ctx, in)
	})
	err := form.Submit(cmd.Context(), in)
	if err == nil || !sent {
		return err
	}
	s.follow(cmd.Context(), cmd.ErrOrStderr())
	return reported(err)
}
