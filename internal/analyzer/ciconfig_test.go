package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCI = `
include:
  - remote: 'https://example.com/ci/base.yml'
  - project: 'platform/ci'
    file: '/templates/build.yml'
  - template: Security/SAST.gitlab-ci.yml
  - 'local/extra.yml'

stages: [build, test, deploy]

variables:
  DOCKER_TLS_CERTDIR: ""
  GO_VERSION:
    value: "1.22"
    description: toolchain

default:
  image: golang:1.22
  before_script:
    - go version

workflow:
  rules:
    - if: $CI_COMMIT_BRANCH

.template:
  script: [echo template]

build:
  stage: build
  image:
    name: registry.gitlab.com/group/builder:2
  services: ["docker:24-dind"]
  script:
    - make build
  artifacts:
    paths: [bin/]

lint:
  script: make lint

deploy:
  stage: deploy
  environment:
    name: production
  tags: [prod]
  except:
    refs: [tags]
  variables:
    TARGET: prod
  script: [./deploy.sh]
`

func TestParseCI(t *testing.T) {
	doc, err := ParseCI(sampleCI)
	require.NoError(t, err)

	assert.Equal(t, []string{"build", "test", "deploy"}, doc.Stages)
	assert.Equal(t, []CIInclude{
		{Kind: "remote", Value: "https://example.com/ci/base.yml"},
		{Kind: "project", Value: "platform/ci"},
		{Kind: "template", Value: "Security/SAST.gitlab-ci.yml"},
		{Kind: "local", Value: "local/extra.yml"},
	}, doc.Includes)
	assert.Equal(t, map[string]string{"DOCKER_TLS_CERTDIR": "", "GO_VERSION": "1.22"}, doc.Variables)
	assert.Equal(t, "golang:1.22", doc.Image)
	assert.Equal(t, []string{"go version"}, doc.Scripts)

	require.Len(t, doc.Jobs, 3)
	names := []string{doc.Jobs[0].Name, doc.Jobs[1].Name, doc.Jobs[2].Name}
	assert.Equal(t, []string{"build", "lint", "deploy"}, names)

	build := doc.Jobs[0]
	assert.Equal(t, "registry.gitlab.com/group/builder:2", build.Image)
	assert.Equal(t, []string{"docker:24-dind"}, build.Services)
	assert.True(t, build.HasArtifacts)
	assert.False(t, build.HasWhen)

	lint := doc.Jobs[1]
	assert.Equal(t, "test", lint.Stage)
	assert.Equal(t, []string{"make lint"}, lint.Scripts)

	deploy := doc.Jobs[2]
	assert.Equal(t, "production", deploy.Environment)
	assert.True(t, deploy.HasExcept)
	assert.Equal(t, []string{"tags"}, deploy.Except)
	assert.Equal(t, map[string]string{"TARGET": "prod"}, deploy.Variables)

	assert.Equal(t, []string{"golang:1.22", "registry.gitlab.com/group/builder:2", "docker:24-dind"}, doc.Images())
	assert.Equal(t, []string{"go version", "make build", "make lint", "./deploy.sh"}, doc.AllScripts())
	assert.Equal(t, []string{"go version", "make build", "make lint", "./deploy.sh",
		"DOCKER_TLS_CERTDIR=", "GO_VERSION=1.22", "TARGET=prod"}, doc.ProbeScripts())
}

func TestParseCIInvalid(t *testing.T) {
	tests := []struct {
		name string
		ci   string
	}{
		{name: "brokenFlow", ci: "stages: [build\n"},
		{name: "topLevelList", ci: "- build\n- test\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCI(tt.ci)
			assert.Error(t, err)
		})
	}
}

func TestParseCIEmpty(t *testing.T) {
	doc, err := ParseCI("")
	require.NoError(t, err)
	assert.Empty(t, doc.Jobs)
	assert.Equal(t, defaultStages, doc.DeclaredStages())
}
