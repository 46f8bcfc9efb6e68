package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
)

const maxBodyBytes = 1 << 20

// HealthResponse is returned by the public health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleNotFound returns a 404 for unknown routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, &domain.Error{Kind: domain.KindNotFound, Message: "no procedure at " + r.URL.Path})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as an error envelope. Server errors are logged
// with their cause and reach the client with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindServer {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("procedure failed")
	}
	writeJSON(w, kind.HTTPStatus(), ErrorEnvelope{Error: ShapeOf(err)})
}

// decodeBody reads a JSON request body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return domain.Invalid("Could not read request body")
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.Invalid("Request body must be a JSON object")
	}
	return nil
}

// listFilter decodes the list parameters of r. Absent or malformed values
// take the codec defaults, so a page requested without pageSize has
// filter.DefaultPageSize rows. A numeric pageSize outside the allowed range
// is rejected.
func (s *Server) listFilter(r *http.Request) (filter.Filter, error) {
	q := r.URL.Query()
	f := filter.Decode(q)
	limits := s.listLimits()
	if raw := q.Get(filter.ParamPageSize); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && (n < 1 || n > limits.MaxPageSize) {
			return f, domain.Validation(map[string]string{
				filter.ParamPageSize: fmt.Sprintf("Page size must be between 1 and %d", limits.MaxPageSize),
			})
		}
	}
	return f, nil
}

func requireID(r *http.Request) (string, error) {
	id := r.URL.Query().Get("id")
	if id == "" {
		return "", domain.Validation(map[string]string{"id": "Id is required"})
	}
	return id, nil
}

// RequestHandler processes a request frame from a stream client.
type RequestHandler func(rc *RequestContext)

// RequestContext carries everything a stream handler needs.
type RequestContext struct {
	Ctx    context.Context
	Client *Client
	Frame  Frame
	Server *Server
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends err as an error response.
func (rc *RequestContext) RespondError(err error) {
	rc.Client.RespondError(rc.Frame.ID, ShapeOf(err))
}

// Params unmarshals the request params into the given target.
func (rc *RequestContext) Params(target any) error {
	if rc.Frame.Params == nil {
		return nil
	}
	return json.Unmarshal(rc.Frame.Params, target)
}

func (s *Server) registerStreamHandlers() {
	s.Handle(MethodPing, s.streamPing)
	s.Handle(MethodSession, s.streamSession)
}

func (s *Server) streamPing(rc *RequestContext) {
	rc.Respond(map[string]any{"pong": true, "clients": s.clients.Count()})
}

// streamSession reports the stream's user and plan.
func (s *Server) streamSession(rc *RequestContext) {
	isPremium, err := s.premium.IsPremium(rc.Ctx, rc.Client.UserID)
	if err != nil {
		rc.RespondError(err)
		return
	}
	rc.Respond(map[string]any{"userId": rc.Client.UserID, "premium": isPremium})
}
