package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/forgeyard/forgeyard/pkg/names"
	"github.com/forgeyard/forgeyard/server/accountdb"
	"github.com/forgeyard/forgeyard/server/catalog"
	"github.com/forgeyard/forgeyard/server/repos"
)

func (s *Server) mustValidateProjectName(name string) {
	if err := names.ValidateProjectName(name, s.Config.maxProjectNameLen()); err != nil {
		panic(apiError{http.StatusBadRequest, fmt.Sprintf("invalid-project-name: %v", err)})
	}
}

type createProjectJSON struct {
	ProjectName string `json:"project_name"`
}

type createProjectPayload struct {
	RepositoryCreated bool   `json:"repository_created"`
	RepoURL           string `json:"repo_url"`
	HTTPURL           string `json:"http_url"`
	WSURL             string `json:"ws_url"`
}

func (s *Server) httpCreateProject(w http.ResponseWriter, r *http.Request, params httprouter.Params, login string) {
	req := createProjectJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	s.mustValidateProjectName(req.ProjectName)
	canonical := names.Canonical(login, req.ProjectName)
	created := true
	if err := s.provisioner.CreateRepo(login, req.ProjectName); err != nil {
		if !errors.Is(err, repos.ErrRepoExists) {
			s.Log.Errorf("Can not create repository %v: %v", canonical, err)
			panic(apiError{http.StatusInternalServerError, reasonInternalError})
		}
		// Not an error to the caller. The flag tells them whether the
		// repository is fresh or was already there.
		created = false
	}
	sendPayload(w, &createProjectPayload{
		RepositoryCreated: created,
		RepoURL:           s.repoURL(canonical),
		HTTPURL:           s.httpURL(canonical),
		WSURL:             s.wsURL(canonical),
	})
}

type findProjectsJSON struct {
	Name string `json:"name"`
}

func (s *Server) httpFindProjects(w http.ResponseWriter, r *http.Request, params httprouter.Params, login string) {
	req := findProjectsJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	found, err := s.catalog.Search(req.Name)
	if err != nil {
		s.Log.Errorf("Project search for %q failed: %v", req.Name, err)
		panic(apiError{http.StatusInternalServerError, reasonInternalError})
	}
	sendPayload(w, found)
}

type installProjectJSON struct {
	AppName     string `json:"app_name"`
	Login       string `json:"login"`
	ProjectName string `json:"project_name"`
	Version     string `json:"version"`
}

type installProjectPayload struct {
	HTTPURL string `json:"http_url"`
	WSURL   string `json:"ws_url"`
}

func (s *Server) httpInstallProject(w http.ResponseWriter, r *http.Request, params httprouter.Params, login string) {
	req := installProjectJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	s.mustValidateProjectName(req.AppName)
	srcRepo := names.Canonical(req.Login, req.ProjectName)
	dstRepo := names.Canonical(login, req.AppName)
	if err := s.dispatcher.Install(srcRepo, dstRepo, req.Version); err != nil {
		s.Log.Errorf("Install of %v %v as %v failed: %v", srcRepo, req.Version, dstRepo, err)
		panic(apiError{http.StatusBadGateway, fmt.Sprintf("failed-to-deploy-project, name: %v, version: %v", dstRepo, req.Version)})
	}
	sendPayload(w, &installProjectPayload{
		HTTPURL: s.httpURL(dstRepo),
		WSURL:   s.wsURL(dstRepo),
	})
}

func (s *Server) ciServiceCredsOK(user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.Config.Jenkins.User)) == 1
	tokenOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.Config.Jenkins.Token)) == 1
	return userOK && tokenOK
}

type userProjectJSON struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// httpInsertUserProjects is called by the CI pipeline after a successful
// build, to publish a project version into the catalog. It authenticates
// with the same service credentials the pipeline uses against the CI server.
func (s *Server) httpInsertUserProjects(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	user, password, ok := r.BasicAuth()
	if !ok || !s.ciServiceCredsOK(user, password) {
		panic(apiError{http.StatusUnauthorized, accountdb.ErrInvalidToken.Error()})
	}
	req := userProjectJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	err := s.catalog.Insert(req.Login, req.Name, req.Version, req.Description)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrProjectVersionExists):
		panic(apiError{http.StatusConflict, err.Error()})
	case errors.Is(err, accountdb.ErrAccountNotFound):
		panic(apiError{http.StatusNotFound, err.Error()})
	default:
		s.Log.Errorf("Can not insert user project %v/%v %v: %v", req.Login, req.Name, req.Version, err)
		panic(apiError{http.StatusInternalServerError, reasonInternalError})
	}
	sendOKStatus(w)
}
