package repos

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/forgeyard/forgeyard/server/deploy"
)

func createTestProvisioner(t *testing.T) *Provisioner {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	jenkins := deploy.JenkinsConfig{
		API:     "https://jenkins.example.com",
		User:    "ci-user",
		Token:   "ci-token",
		JobName: "build-project",
	}
	deployer := deploy.DeployerConfig{
		API:      "https://deployer.example.com",
		User:     "deployer-user",
		Password: "deployer-password",
	}
	// Owner is empty: tests don't run as root, so no chown
	return NewProvisioner(logs.NewTestingLog(t), t.TempDir(), "", jenkins, deployer)
}

func TestCreateRepo(t *testing.T) {
	p := createTestProvisioner(t)

	require.NoError(t, p.CreateRepo("alice1x2y3z4", "hello"))

	repoDir := p.RepoPath("alice1x2y3z4-hello")
	require.DirExists(t, repoDir)

	// A bare repo, with receivepack enabled over HTTP
	config, err := os.ReadFile(filepath.Join(repoDir, "config"))
	require.NoError(t, err)
	require.Contains(t, string(config), "receivepack")

	description, err := os.ReadFile(filepath.Join(repoDir, "description"))
	require.NoError(t, err)
	require.Equal(t, "alice1x2y3z4-hello", string(description))

	// No staging residue
	entries, err := os.ReadDir(p.BaseDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestCreateRepoIdempotence(t *testing.T) {
	p := createTestProvisioner(t)

	require.NoError(t, p.CreateRepo("alice1x2y3z4", "hello"))

	hookPath := filepath.Join(p.RepoPath("alice1x2y3z4-hello"), "hooks", "update")
	before, err := os.ReadFile(hookPath)
	require.NoError(t, err)

	// Second provision of the same name reports ErrRepoExists and leaves
	// the on-disk state untouched
	require.ErrorIs(t, p.CreateRepo("alice1x2y3z4", "hello"), ErrRepoExists)

	after, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateHook(t *testing.T) {
	p := createTestProvisioner(t)

	require.NoError(t, p.CreateRepo("alice1x2y3z4", "hello"))

	hookPath := filepath.Join(p.RepoPath("alice1x2y3z4-hello"), "hooks", "update")
	info, err := os.Stat(hookPath)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&0111, "hook must be executable")

	hook, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	script := string(hook)
	require.True(t, strings.HasPrefix(script, "#!/bin/sh"))
	require.Contains(t, script, "alice1x2y3z4")
	require.Contains(t, script, "hello")
	require.Contains(t, script, "https://jenkins.example.com/job/build-project/build")
	require.Contains(t, script, "ci-user:ci-token")
	require.Contains(t, script, "https://deployer.example.com/deploy")
	require.Contains(t, script, "deployer-user:deployer-password")
}
