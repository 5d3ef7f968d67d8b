package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"not connected"`

	// UpstreamStatus is the resource server's status for 502 responses
	UpstreamStatus int `json:"upstream_status,omitempty" example:"503"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// SessionResponse combines the stored session and the authorization flow
// @Description Streaming-service session and authorization flow state
type SessionResponse struct {
	Connection *domain.ConnectionStatus `json:"connection"`
	Flow       driving.FlowStatus       `json:"flow"`
}

// WeeklyPlaysResponse is the play count for the current ISO week
// @Description Weekly play count
type WeeklyPlaysResponse struct {
	Count int `json:"count" example:"37"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleVersion godoc
// @Summary      Get version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Authorization endpoints

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>scorelink</title></head>
<body>
{{if .OK}}<h1>Connected</h1><p>You can close this window.</p>
{{else}}<h1>Connection failed</h1><p>{{.Message}}</p>{{end}}
</body>
</html>
`))

// callbackExchangeTimeout bounds the code exchange once the redirect has arrived.
const callbackExchangeTimeout = 30 * time.Second

type callbackResult struct {
	OK      bool
	Message string
}

// handleCallback receives the provider's redirect and completes the attempt.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	redirectURL := "http://" + r.Host + r.URL.RequestURI()

	// The code is single-use: closing the tab must not abort an exchange in flight
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), callbackExchangeTimeout)
	defer cancel()

	status := http.StatusOK
	result := callbackResult{OK: true}
	if err := s.flow.OnRedirect(ctx, redirectURL); err != nil {
		result = callbackResult{Message: callbackMessage(err)}
		status = http.StatusBadRequest
		if errors.Is(err, domain.ErrNoPendingAuthorization) {
			status = http.StatusConflict
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, result)
}

// callbackMessage is shown to the user; it never echoes redirect parameters other than the provider's description.
func callbackMessage(err error) string {
	var oauthErr *domain.OAuthError
	switch {
	case errors.As(err, &oauthErr):
		return "The authorization server reported: " + oauthErr.Error()
	case errors.Is(err, domain.ErrStateMismatch):
		return "The response did not match this sign-in attempt."
	case errors.Is(err, domain.ErrNoPendingAuthorization):
		return "No sign-in is in progress. Start again from the app."
	case errors.Is(err, domain.ErrTokenExchange):
		return "The authorization code could not be exchanged."
	case errors.Is(err, domain.ErrMissingCode):
		return "The response did not include an authorization code."
	default:
		return "The response could not be processed."
	}
}

// handleConnect godoc
// @Summary      Start authorization
// @Description  Starts a PKCE authorization attempt and opens the authorization page
// @Tags         Session
// @Produce      json
// @Success      202  {object}  driving.AuthorizeResponse
// @Failure      409  {object}  ErrorResponse  "Authorization already in progress"
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/connect [post]
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	resp, err := s.flow.Begin(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handleCancelConnect godoc
// @Summary      Cancel authorization
// @Tags         Session
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Router       /api/v1/connect/cancel [post]
func (s *Server) handleCancelConnect(w http.ResponseWriter, r *http.Request) {
	s.flow.Cancel()
	s.handleStatus(w, r)
}

// handleStatus godoc
// @Summary      Session status
// @Tags         Session
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.tokens.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	flow := driving.FlowStatus{State: s.flow.State()}
	if ferr := s.flow.Err(); ferr != nil {
		flow.Error = ferr.Error()
	}
	writeJSON(w, http.StatusOK, SessionResponse{Connection: conn, Flow: flow})
}

// handleDisconnect godoc
// @Summary      Disconnect
// @Description  Deletes the stored token record
// @Tags         Session
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/disconnect [post]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.tokens.Disconnect(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.flow.Reset()
	writeJSON(w, http.StatusOK, StatusResponse{Status: "disconnected"})
}

// Catalog endpoints

// handleSearchArtists godoc
// @Summary      Search artists
// @Tags         Catalog
// @Produce      json
// @Param        q      query     string  true   "Search query"
// @Param        limit  query     int     false  "Maximum results"
// @Success      200    {array}   domain.Artist
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse  "Not connected or session rejected"
// @Failure      502    {object}  ErrorResponse  "Streaming service error"
// @Router       /api/v1/artists [get]
func (s *Server) handleSearchArtists(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	artists, err := s.catalog.SearchArtists(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

// handleArtistAlbums godoc
// @Summary      List an artist's albums
// @Description  Fetches every page, removes duplicates and sorts by release date, newest first
// @Tags         Catalog
// @Produce      json
// @Param        id              path      string  true   "Artist ID"
// @Param        include_groups  query     string  false  "Comma-separated album groups"
// @Param        market          query     string  false  "Market code"
// @Param        limit           query     int     false  "Page size"
// @Success      200             {array}   domain.Album
// @Failure      401             {object}  ErrorResponse
// @Failure      502             {object}  ErrorResponse
// @Router       /api/v1/artists/{id}/albums [get]
func (s *Server) handleArtistAlbums(w http.ResponseWriter, r *http.Request) {
	q := domain.DefaultAlbumQuery()
	params := r.URL.Query()
	if groups := params.Get("include_groups"); groups != "" {
		q.IncludeGroups = strings.Split(groups, ",")
	}
	if market := params.Get("market"); market != "" {
		q.Market = market
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	if limit > 0 {
		q.Limit = limit
	}

	albums, err := s.catalog.ArtistAlbums(r.Context(), r.PathValue("id"), q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// handleWeeklyPlays godoc
// @Summary      Weekly play count
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  WeeklyPlaysResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /api/v1/plays/weekly [get]
func (s *Server) handleWeeklyPlays(w http.ResponseWriter, r *http.Request) {
	count, err := s.catalog.WeeklyPlayCount(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WeeklyPlaysResponse{Count: count})
}

// Leaderboard endpoints

// handleSubmitWeeklyScore godoc
// @Summary      Submit weekly score
// @Description  Submits this week's play count to the leaderboard
// @Tags         Leaderboard
// @Produce      json
// @Success      200  {object}  domain.Score
// @Failure      401  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse  "Leaderboard not configured"
// @Router       /api/v1/scores/weekly [post]
func (s *Server) handleSubmitWeeklyScore(w http.ResponseWriter, r *http.Request) {
	if !s.requireScores(w) {
		return
	}
	score, err := s.scores.SubmitWeeklyPlays(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// handleLeaderboard godoc
// @Summary      Get leaderboard
// @Tags         Leaderboard
// @Produce      json
// @Param        window  query     string  false  "Time window"  default(weekly)
// @Param        metric  query     string  false  "Metric"       default(plays)
// @Success      200     {array}   domain.LeaderboardEntry
// @Failure      502     {object}  ErrorResponse
// @Failure      503     {object}  ErrorResponse
// @Router       /api/v1/leaderboard [get]
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !s.requireScores(w) {
		return
	}
	params := r.URL.Query()
	entries, err := s.scores.Leaderboard(r.Context(), params.Get("window"), params.Get("metric"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleFriends godoc
// @Summary      List friends
// @Tags         Leaderboard
// @Produce      json
// @Success      200  {array}   domain.Friend
// @Failure      502  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/v1/friends [get]
func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	if !s.requireScores(w) {
		return
	}
	friends, err := s.scores.Friends(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (s *Server) requireScores(w http.ResponseWriter) bool {
	if s.scores == nil {
		writeError(w, http.StatusServiceUnavailable, "leaderboard not configured")
		return false
	}
	return true
}

// Helper functions

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrNotConnected), errors.Is(err, domain.ErrTokenRejected),
		errors.Is(err, domain.ErrRefresh), errors.Is(err, domain.ErrTokenExchange):
		// Reconnect required
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrFlowInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		if upstream.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(upstream.RetryAfter/time.Second)))
		}
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error(), UpstreamStatus: upstream.Status})
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// queryInt parses an optional integer query parameter, writing 400 on bad input.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
