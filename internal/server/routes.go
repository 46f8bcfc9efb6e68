package server

import (
	"io"
	"net/http"

	"github.com/meetai/meetai/internal/auth"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/hooks"
	"github.com/meetai/meetai/internal/premium"
)

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("POST /api/auth.signUp", s.handleSignUp)
	mux.HandleFunc("POST /api/auth.signIn", s.handleSignIn)
	mux.HandleFunc("POST /api/auth.signOut", s.authenticated(s.handleSignOut))
	mux.HandleFunc("GET /api/auth.session", s.authenticated(s.handleSession))

	mux.HandleFunc("GET /api/agents.getMany", s.authenticated(s.handleAgentsGetMany))
	mux.HandleFunc("GET /api/agents.getOne", s.authenticated(s.handleAgentsGetOne))
	mux.HandleFunc("POST /api/agents.create", s.authenticated(s.handleAgentsCreate))
	mux.HandleFunc("POST /api/agents.update", s.authenticated(s.handleAgentsUpdate))

	mux.HandleFunc("GET /api/meetings.getMany", s.authenticated(s.handleMeetingsGetMany))
	mux.HandleFunc("GET /api/meetings.getOne", s.authenticated(s.handleMeetingsGetOne))
	mux.HandleFunc("POST /api/meetings.create", s.authenticated(s.handleMeetingsCreate))
	mux.HandleFunc("POST /api/meetings.update", s.authenticated(s.handleMeetingsUpdate))

	mux.HandleFunc("GET /api/premium.getFreeUsage", s.authenticated(s.handleFreeUsage))
	mux.HandleFunc("GET /api/premium.getProducts", s.authenticated(s.handleProducts))
	mux.HandleFunc("GET /api/premium.getCurrentSubscription", s.authenticated(s.handleCurrentSubscription))
	mux.HandleFunc("POST /api/premium.checkout", s.authenticated(s.handleCheckout))
	mux.HandleFunc("POST /api/premium.portal", s.authenticated(s.handlePortal))

	mux.HandleFunc("POST /webhooks/billing", s.handleBillingWebhook)

	mux.HandleFunc("/", s.handleNotFound)
}

// Auth

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.SignUp(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hooks.EmitAsync(r.Context(), hooks.Payload{Event: hooks.EventUserSignedUp, UserID: res.User.ID})
	writeJSON(w, http.StatusOK, res)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.SignIn(r.Context(), r.RemoteAddr, in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), tokenFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": userFrom(r.Context())})
}

// Agents

type agentUpdateRequest struct {
	ID string `json:"id"`
	domain.AgentInput
}

func (s *Server) handleAgentsGetMany(w http.ResponseWriter, r *http.Request) {
	f, err := s.listFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.agents.GetMany(r.Context(), userFrom(r.Context()).ID, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAgentsGetOne(w http.ResponseWriter, r *http.Request) {
	id, err := requireID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.agents.GetOne(r.Context(), userFrom(r.Context()).ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAgentsCreate(w http.ResponseWriter, r *http.Request) {
	var in domain.AgentInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.agents.Create(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAgentsUpdate(w http.ResponseWriter, r *http.Request) {
	var in agentUpdateRequest
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.agents.Update(r.Context(), userFrom(r.Context()).ID, in.ID, in.AgentInput)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Meetings

type meetingUpdateRequest struct {
	ID string `json:"id"`
	domain.MeetingInput
}

func (s *Server) handleMeetingsGetMany(w http.ResponseWriter, r *http.Request) {
	f, err := s.listFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.meetings.GetMany(r.Context(), userFrom(r.Context()).ID, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMeetingsGetOne(w http.ResponseWriter, r *http.Request) {
	id, err := requireID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.meetings.GetOne(r.Context(), userFrom(r.Context()).ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleMeetingsCreate(w http.ResponseWriter, r *http.Request) {
	var in domain.MeetingInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.meetings.Create(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMeetingsUpdate(w http.ResponseWriter, r *http.Request) {
	var in meetingUpdateRequest
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.meetings.Update(r.Context(), userFrom(r.Context()).ID, in.ID, in.MeetingInput)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Premium

type checkoutRequest struct {
	ProductID string `json:"productId"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// handleFreeUsage answers null for premium users.
func (s *Server) handleFreeUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.premium.Usage(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.premium.Products())
}

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	p, err := s.premium.CurrentSubscription(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var in checkoutRequest
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.premium.CheckoutURL(userFrom(r.Context()).ID, in.ProductID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: u})
}

func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	u, err := s.premium.PortalURL(userFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: u})
}

func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, domain.Invalid("Could not read request body"))
		return
	}
	sub, err := s.premium.HandleWebhook(r.Context(), body, r.Header.Get(premium.SignatureHeader))
	if err != nil {
		if domain.IsKind(err, domain.KindUnauthorized) {
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("billing webhook with bad signature")
		}
		s.writeError(w, r, err)
		return
	}
	s.hooks.Emit(r.Context(), hooks.Payload{
		Event:  hooks.EventSubscriptionChanged,
		UserID: sub.UserID,
		ID:     sub.ProductID,
		Data:   map[string]any{"status": string(sub.Status)},
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
