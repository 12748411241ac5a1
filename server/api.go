package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"

	"github.com/forgeyard/forgeyard/server/accountdb"
)

// apiError carries one of the stable user-visible reason strings, and the
// HTTP status it rides on. Reason strings never change: clients match on them.
type apiError struct {
	Code   int
	Reason string
}

func (e apiError) Error() string {
	return e.Reason
}

const reasonInternalError = "internal-error"
const reasonInvalidOriginalURI = "invalid-original-uri"

type statusEnvelope struct {
	Status  string `json:"status"`
	Payload any    `json:"payload,omitempty"`
}

type errorEnvelope struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func sendReason(w http.ResponseWriter, code int, reason string) {
	body, _ := json.Marshal(&errorEnvelope{Status: "error", Reason: reason})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func sendPayload(w http.ResponseWriter, payload any) {
	www.SendJSON(w, &statusEnvelope{Status: "ok", Payload: payload})
}

func sendOKStatus(w http.ResponseWriter) {
	www.SendJSON(w, &statusEnvelope{Status: "ok"})
}

type authenticatedHandler func(w http.ResponseWriter, r *http.Request, params httprouter.Params, login string)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	// handle wraps every route: apiError panics become the JSON error
	// envelope, anything else falls through to the www recovery handler.
	handle := func(method, route string, fn httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			defer func() {
				if rec := recover(); rec != nil {
					if e, ok := rec.(apiError); ok {
						s.Log.Infof("Request %v failed: %v %v", r.URL.Path, e.Code, e.Reason)
						sendReason(w, e.Code, e.Reason)
					} else {
						panic(rec)
					}
				}
			}()
			fn(w, r, params)
		})
	}

	// protected routes require a live bearer token of a verified account
	protected := func(method, route string, fn authenticatedHandler) {
		handle(method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			fn(w, r, params, s.mustAuthenticateBearer(r))
		})
	}

	// The account endpoints are unauthenticated, so they get per-IP rate limits
	ratelimited := func(method, route string, fn func(w http.ResponseWriter, r *http.Request), requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))(http.HandlerFunc(fn))
		handle(method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited.ServeHTTP(w, r)
		})
	}

	handle("GET", "/api/ping", s.httpPing)

	protected("POST", "/api/v1/projects", s.httpCreateProject)
	protected("POST", "/api/v1/find", s.httpFindProjects)
	protected("POST", "/api/v1/install", s.httpInstallProject)

	ratelimited("POST", "/api/v1/signup", s.httpSignup, 30, time.Minute)
	ratelimited("POST", "/api/v1/login", s.httpLogin, 60, time.Minute)
	handle("GET", "/api/v1/verify_email/:token", s.httpVerifyEmail)

	handle("GET", "/api/v1/git_auth", s.httpGitAuth)

	// Catalog inserts come from the CI pipeline, authenticated with the CI
	// service account. This endpoint must never be open on a public listener.
	handle("POST", "/api/v1/user_projects", s.httpInsertUserProjects)

	s.httpRouter = router
}

// mustAuthenticateBearer resolves the Authorization header to a login, or
// panics with the appropriate 401.
func (s *Server) mustAuthenticateBearer(r *http.Request) string {
	const prefix = "Bearer "
	authorization := r.Header.Get("Authorization")
	if !strings.HasPrefix(authorization, prefix) {
		panic(apiError{http.StatusUnauthorized, accountdb.ErrInvalidToken.Error()})
	}
	login, err := s.accountDB.AuthenticateBearer(authorization[len(prefix):])
	if err != nil {
		panic(apiError{http.StatusUnauthorized, authReason(err)})
	}
	return login
}

// authReason maps store errors to a stable user-visible reason.
func authReason(err error) string {
	switch {
	case errors.Is(err, accountdb.ErrInvalidToken),
		errors.Is(err, accountdb.ErrInvalidEmailAndPassword),
		errors.Is(err, accountdb.ErrAccountNotFound),
		errors.Is(err, accountdb.ErrEmailNotVerified):
		return err.Error()
	}
	return reasonInternalError
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time int64 `json:"time"`
	}
	www.SendJSON(w, &pingJSON{Time: time.Now().Unix()})
}
