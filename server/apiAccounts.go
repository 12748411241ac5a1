package server

import (
	"errors"
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/forgeyard/forgeyard/server/accountdb"
)

type signupJSON struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) httpSignup(w http.ResponseWriter, r *http.Request) {
	req := signupJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	acc, err := s.accountDB.CreateAccount(req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, accountdb.ErrInvalidEmailAndPassword):
		panic(apiError{http.StatusBadRequest, err.Error()})
	case errors.Is(err, accountdb.ErrEmailExists):
		panic(apiError{http.StatusConflict, err.Error()})
	default:
		s.Log.Errorf("Signup failed: %v", err)
		panic(apiError{http.StatusInternalServerError, reasonInternalError})
	}
	// Until outbound email is wired up, the verification link only exists in
	// the log. TODO: send this via the mailer once the SMTP relay is deployed.
	s.Log.Infof("Verification link for %v: https://%v/api/v1/verify_email/%v", acc.Email, s.Config.BaseDomain, acc.VerificationToken)
	sendOKStatus(w)
}

func (s *Server) httpLogin(w http.ResponseWriter, r *http.Request) {
	req := signupJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	token, err := s.accountDB.Login(req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, accountdb.ErrInvalidEmailAndPassword):
		panic(apiError{http.StatusBadRequest, err.Error()})
	case errors.Is(err, accountdb.ErrAccountNotFound):
		panic(apiError{http.StatusUnauthorized, err.Error()})
	case errors.Is(err, accountdb.ErrEmailNotVerified):
		panic(apiError{http.StatusUnauthorized, err.Error()})
	default:
		s.Log.Errorf("Login failed: %v", err)
		panic(apiError{http.StatusInternalServerError, reasonInternalError})
	}
	type loginJSON struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}
	www.SendJSON(w, &loginJSON{Status: "ok", Token: token})
}

// httpVerifyEmail serves the link from the verification email, so it replies
// with plain text for a browser, not with the JSON envelope.
func (s *Server) httpVerifyEmail(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	err := s.accountDB.VerifyEmail(params.ByName("token"))
	switch {
	case err == nil:
		www.SendText(w, "Your email verified.")
	case errors.Is(err, accountdb.ErrVerificationNotFound):
		http.Error(w, "Invalid request", http.StatusBadRequest)
	default:
		s.Log.Errorf("Email verification failed: %v", err)
		http.Error(w, "Internal error. Please try later.", http.StatusInternalServerError)
	}
}
