package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/meetai/meetai/internal/domain"
)

// reportedError marks an error the command already showed to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

// printError writes err unless it was already shown. Validation errors list
// their fields.
func printError(w io.Writer, err error) {
	var re reportedError
	if errors.As(err, &re) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
	var de *domain.Error
	if errors.As(err, &de) && len(de.Fields) > 1 {
		names := make([]string, 0, len(de.Fields))
		for name := range de.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %s\n", name, de.Fields[name])
		}
	}
}

// field prints an aligned label/value line.
func field(w io.Writer, label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(w, "%-13s %s\n", label+":", value)
}
