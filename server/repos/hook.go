package repos

import (
	"os"
	"path/filepath"
	"text/template"

	"github.com/forgeyard/forgeyard/server/deploy"
)

// The update hook runs on the git host for every pushed ref. It triggers a
// CI build of the pushed revision and asks the deployer to roll the new
// artifact out. CI and deployer credentials are baked into the rendered
// script, which is why repository trees are treated as secret material.
var updateHookTemplate = template.Must(template.New("update").Parse(`#!/bin/sh
# update <refname> <oldsha> <newsha>
# Installed by the forgeyard provisioner. Do not edit: recreated on provision.

refname="$1"
newsha="$3"

curl -sS -X POST "{{.Jenkins.API}}/job/{{.Jenkins.JobName}}/build" \
	--user "{{.Jenkins.User}}:{{.Jenkins.Token}}" \
	--data-urlencode json="{\"parameter\": [
		{\"name\": \"LOGIN\", \"value\": \"{{.Login}}\"},
		{\"name\": \"PROJECT_NAME\", \"value\": \"{{.ProjectName}}\"},
		{\"name\": \"REF\", \"value\": \"$refname\"},
		{\"name\": \"SHA\", \"value\": \"$newsha\"}]}"

curl -sS -X POST "{{.Deployer.API}}/deploy" \
	--user "{{.Deployer.User}}:{{.Deployer.Password}}" \
	--header "Content-Type: application/json" \
	--data "{\"name\": \"{{.Login}}-{{.ProjectName}}\", \"ref\": \"$refname\", \"sha\": \"$newsha\"}"

exit 0
`))

type hookParams struct {
	Jenkins     *deploy.JenkinsConfig
	Deployer    *deploy.DeployerConfig
	Login       string
	ProjectName string
}

// writeUpdateHook renders hooks/update into the repository at dir.
// Mode 0775: executable by the git host, group-readable by the web server
// group, nothing for others.
func writeUpdateHook(dir string, jenkins *deploy.JenkinsConfig, deployer *deploy.DeployerConfig, login, project string) error {
	hookPath := filepath.Join(dir, "hooks", "update")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0775); err != nil {
		return err
	}
	f, err := os.OpenFile(hookPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0775)
	if err != nil {
		return err
	}
	params := hookParams{
		Jenkins:     jenkins,
		Deployer:    deployer,
		Login:       login,
		ProjectName: project,
	}
	if err := updateHookTemplate.Execute(f, &params); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// In case a restrictive umask stripped the group bits
	return os.Chmod(hookPath, 0775)
}
