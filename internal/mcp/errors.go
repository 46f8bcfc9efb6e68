package mcp

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/listview"
)

// ToolError is the JSON body of a failed tool call.
type ToolError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e ToolError) ToResult() *mcp.CallToolResult {
	data, _ := json.Marshal(e)
	return mcp.NewToolResultError(string(data))
}

// ValidationError reports a bad or missing argument.
func ValidationError(field, msg string) *mcp.CallToolResult {
	return ToolError{
		Code:    domain.CodeBadRequest,
		Message: msg,
		Details: map[string]string{field: msg},
	}.ToResult()
}

// InternalError reports a failure the caller cannot fix.
func InternalError(err error) *mcp.CallToolResult {
	return ErrorResult(domain.Internal(err))
}

// ErrorResult maps a procedure error to a tool error. Plan limits point the
// caller at the upgrade page.
func ErrorResult(err error) *mcp.CallToolResult {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Internal(err)
	}
	te := ToolError{Code: de.Kind.Code(), Message: listview.Message(err), Details: de.Fields}
	if de.Kind == domain.KindPlanLimit {
		te.Details = map[string]string{"upgrade": listview.UpgradePath}
	}
	return te.ToResult()
}
