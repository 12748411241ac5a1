package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/forgeyard/forgeyard/pkg/names"
	"github.com/forgeyard/forgeyard/server/accountdb"
)

// httpGitAuth answers auth sub-requests from the web server fronting the git
// repositories. The fronting server forwards the client's Authorization
// header together with the requested git path in X-Original-URI, and serves
// or refuses the git operation based on our status code alone.
func (s *Server) httpGitAuth(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if r.Header.Get("Authorization") == "" {
		// Make the git client prompt for credentials
		w.Header().Set("WWW-Authenticate", `Basic realm="Please enter your email and password"`)
		panic(apiError{http.StatusUnauthorized, accountdb.ErrInvalidToken.Error()})
	}
	email, password, ok := r.BasicAuth()
	if !ok {
		panic(apiError{http.StatusUnauthorized, accountdb.ErrInvalidEmailAndPassword.Error()})
	}
	login, err := s.accountDB.AuthenticateBasic(email, password)
	if err != nil {
		panic(apiError{http.StatusUnauthorized, authReason(err)})
	}
	// A user may only touch repositories under their own namespace
	if !names.FirstSegmentOwnedBy(r.Header.Get("X-Original-URI"), login) {
		panic(apiError{http.StatusForbidden, reasonInvalidOriginalURI})
	}
	sendOKStatus(w)
}
