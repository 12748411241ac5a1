// Package repos provisions hosted bare repositories on the local filesystem.
//
// A repository directory contains secrets (the rendered update hook embeds
// CI and deployer credentials), so the whole tree is kept group-readable by
// the web server group and nothing wider.
package repos

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cyclopcam/logs"

	"github.com/forgeyard/forgeyard/pkg/names"
	"github.com/forgeyard/forgeyard/pkg/rando"
	"github.com/forgeyard/forgeyard/pkg/shell"
	"github.com/forgeyard/forgeyard/server/deploy"
)

// ErrRepoExists means the canonical path is already occupied. The HTTP layer
// reports this to the user as success with repository_created=false.
var ErrRepoExists = errors.New("repository already exists")

type Provisioner struct {
	Log     logs.Log
	BaseDir string

	// "user:group" applied with chown -R after provisioning.
	// Empty skips the chown, for tests and deployments that don't run as root.
	Owner string

	Jenkins  deploy.JenkinsConfig
	Deployer deploy.DeployerConfig
}

func NewProvisioner(log logs.Log, baseDir, owner string, jenkins deploy.JenkinsConfig, deployer deploy.DeployerConfig) *Provisioner {
	return &Provisioner{
		Log:      log,
		BaseDir:  baseDir,
		Owner:    owner,
		Jenkins:  jenkins,
		Deployer: deployer,
	}
}

// RepoPath returns the deterministic on-disk path of a canonical name.
func (p *Provisioner) RepoPath(canonical string) string {
	return filepath.Join(p.BaseDir, canonical+".git")
}

// CreateRepo provisions the bare repository for (login, project).
// The repository is built in a staging directory next to its final path and
// renamed into place once complete, so the final path either doesn't exist
// or holds a fully provisioned repository. On failure the staging tree is
// removed. Two concurrent calls for the same name are serialized by the
// rename: the loser sees ErrRepoExists.
func (p *Provisioner) CreateRepo(login, project string) error {
	canonical := names.Canonical(login, project)
	final := p.RepoPath(canonical)
	if _, err := os.Stat(final); err == nil {
		return ErrRepoExists
	}

	staging := filepath.Join(p.BaseDir, ".stage-"+canonical+"-"+rando.StrongRandomLowerAlphaNumChars(8))
	if err := os.MkdirAll(staging, 0775); err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			os.RemoveAll(staging)
		}
	}()

	if err := p.buildRepo(staging, canonical, login, project); err != nil {
		return err
	}

	if err := os.Rename(staging, final); err != nil {
		if isDirOccupied(err) {
			// Lost the race to a concurrent provision of the same name
			return ErrRepoExists
		}
		return err
	}
	renamed = true
	p.Log.Infof("Provisioned repository %v", final)
	return nil
}

// buildRepo runs the provisioning sequence inside dir. The order is
// contractual: every step must succeed for the repository to be renamed
// into place.
func (p *Provisioner) buildRepo(dir, canonical, login, project string) error {
	steps := [][]string{
		{"git", "init", "--bare"},
		{"git", "update-server-info"},
		{"git", "config", "--file", "config", "http.receivepack", "true"},
	}
	for _, step := range steps {
		if err := p.runIn(dir, step[0], step[1:]...); err != nil {
			return err
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "description"), []byte(canonical), 0664); err != nil {
		return err
	}

	if err := writeUpdateHook(dir, &p.Jenkins, &p.Deployer, login, project); err != nil {
		return err
	}

	if p.Owner != "" {
		if err := p.runIn(dir, "chown", "-R", p.Owner, "."); err != nil {
			return err
		}
	}
	return p.runIn(dir, "chmod", "-R", "775", ".")
}

func (p *Provisioner) runIn(dir, name string, args ...string) error {
	_, err := shell.RunIn(dir, name, args...)
	if err != nil {
		p.Log.Errorf("%v %v failed in %v: %v", name, args, dir, err)
		return err
	}
	p.Log.Infof("Executed %v %v in %v", name, args, dir)
	return nil
}

// Rename onto an existing non-empty directory fails with ENOTEMPTY or EEXIST,
// depending on the OS.
func isDirOccupied(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) || os.IsExist(err)
}
