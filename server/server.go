// Package server wires the HTTP API to the account store, the project
// catalog, the repository provisioner and the deployment dispatcher.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
	"gorm.io/gorm"

	"github.com/forgeyard/forgeyard/server/accountdb"
	"github.com/forgeyard/forgeyard/server/catalog"
	"github.com/forgeyard/forgeyard/server/deploy"
	"github.com/forgeyard/forgeyard/server/repos"
	"github.com/forgeyard/forgeyard/server/schema"
)

type ServerFlags int

const (
	// ServerFlagWipeDB erases the entire DB before starting (unit tests)
	ServerFlagWipeDB ServerFlags = 1 << iota
)

type Server struct {
	Log    logs.Log
	DB     *gorm.DB
	Config *Config

	accountDB   *accountdb.AccountDB
	catalog     *catalog.Catalog
	provisioner *repos.Provisioner
	dispatcher  *deploy.Dispatcher

	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

func NewServer(logger logs.Log, cfg *Config, flags ServerFlags) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dbFlags := dbh.DBConnectFlags(0)
	if flags&ServerFlagWipeDB != 0 {
		dbFlags |= dbh.DBConnectFlagWipeDB
	}
	db, err := schema.Open(logger, cfg.DB, dbFlags)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database (%v): %w", cfg.DB.LogSafeDescription(), err)
	}
	if err := os.MkdirAll(cfg.BaseRepoDir, 0775); err != nil {
		return nil, fmt.Errorf("Failed to create repository directory %v: %w", cfg.BaseRepoDir, err)
	}
	s := &Server{
		Log:         logger,
		DB:          db,
		Config:      cfg,
		accountDB:   accountdb.NewAccountDB(logger, db, cfg.PasswordSalt, cfg.TokenSecret),
		catalog:     catalog.NewCatalog(logger, db),
		provisioner: repos.NewProvisioner(logger, cfg.BaseRepoDir, cfg.RepoOwner, cfg.Jenkins, cfg.Deployer),
		dispatcher:  deploy.NewDispatcher(logger, cfg.Jenkins, cfg.Deployer),
	}
	s.setupHttpRoutes()
	return s, nil
}

func (s *Server) ListenHTTP() error {
	addr := fmt.Sprintf("%v:%v", s.Config.ListenIP, s.Config.ListenPort)
	s.Log.Infof("Listening on %v", addr)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v', shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	signal.Stop(s.signalIn)
	close(s.signalIn)
	s.Log.Infof("Closing HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Log.Warnf("Shutdown complete, with error: %v", err)
	} else {
		s.Log.Infof("Shutdown complete")
	}
	s.Log.Close()
}
