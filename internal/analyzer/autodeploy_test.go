package analyzer

import (
	"reflect"
	"testing"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAutoDeploy(t *testing.T) {
	type args struct {
		ci string
	}

	tests := []struct {
		name string
		args args
		want AutoDeployResult
	}{
		{
			name: "noRestrictions",
			args: args{ci: `
stages: [build, deploy]
deploy_prod:
  stage: deploy
  environment: production
  script: ["./deploy.sh"]
`},
			want: AutoDeployResult{
				AutoDeploy: true,
				DetectedJobs: []DetectedJob{
					{Name: "deploy_prod", Stage: "deploy", Environment: "production", Reason: "no restrictions found"},
				},
			},
		},
		{
			name: "manual",
			args: args{ci: `
stages: [build, deploy]
deploy_prod:
  stage: deploy
  environment: production
  when: manual
  script: ["./deploy.sh"]
`},
			want: AutoDeployResult{AutoDeploy: false, DetectedJobs: []DetectedJob{}},
		},
		{
			name: "rulesOnMain",
			args: args{ci: `
stages: [deploy]
release:
  stage: deploy
  environment: {name: production}
  rules:
    - if: '$CI_COMMIT_BRANCH == "main"'
`},
			want: AutoDeployResult{
				AutoDeploy: true,
				DetectedJobs: []DetectedJob{
					{Name: "release", Stage: "deploy", Environment: "production", Reason: "rules allow an automatic run"},
				},
			},
		},
		{
			name: "rulesManual",
			args: args{ci: `
stages: [deploy]
release:
  stage: deploy
  environment: production
  rules:
    - if: '$CI_COMMIT_BRANCH == "main"'
      when: manual
`},
			want: AutoDeployResult{AutoDeploy: false, DetectedJobs: []DetectedJob{}},
		},
		{
			name: "rulesFeatureBranch",
			args: args{ci: `
stages: [deploy]
release:
  stage: deploy
  environment: production
  rules:
    - if: '$CI_COMMIT_BRANCH == "feature"'
`},
			want: AutoDeployResult{AutoDeploy: false, DetectedJobs: []DetectedJob{}},
		},
		{
			name: "exceptWithoutManual",
			args: args{ci: `
stages: [deploy]
ship:
  stage: deploy
  environment: live
  except: [tags]
`},
			want: AutoDeployResult{
				AutoDeploy: true,
				DetectedJobs: []DetectedJob{
					{Name: "ship", Stage: "deploy", Environment: "live", Reason: "except does not require a manual action"},
				},
			},
		},
		{
			name: "onlyBranches",
			args: args{ci: `
stages: [deploy]
ship:
  stage: deploy
  only: [main]
`},
			want: AutoDeployResult{
				AutoDeploy: true,
				DetectedJobs: []DetectedJob{
					{Name: "ship", Stage: "deploy", Reason: "when is not manual"},
				},
			},
		},
		{
			name: "stageNotDeclared",
			args: args{ci: `
stages: [build]
deploy_prod:
  stage: deploy
  environment: production
`},
			want: AutoDeployResult{AutoDeploy: false, DetectedJobs: []DetectedJob{}},
		},
		{
			name: "notProduction",
			args: args{ci: `
stages: [build, test]
unit:
  stage: test
  environment: review
  script: [make test]
`},
			want: AutoDeployResult{AutoDeploy: false, DetectedJobs: []DetectedJob{}},
		},
		{
			name: "productionTagDefaultStages",
			args: args{ci: `
ship:
  stage: build
  tags: [prod-runner]
`},
			want: AutoDeployResult{
				AutoDeploy: true,
				DetectedJobs: []DetectedJob{
					{Name: "ship", Stage: "build", Reason: "no restrictions found"},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseCI(tt.args.ci)
			require.NoError(t, err)

			got := DetectAutoDeploy(doc)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectAutoDeploy() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetectAutoDeployRepeatable(t *testing.T) {
	ci := `
stages: [build, deploy]
build:
  stage: build
  script: [make]
deploy_prod:
  stage: deploy
  environment: production
deploy_live:
  stage: deploy
  except: [tags]
`
	doc, err := ParseCI(ci)
	require.NoError(t, err)

	first := DetectAutoDeploy(doc)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, DetectAutoDeploy(doc))
	}

	again, err := ParseCI(ci)
	require.NoError(t, err)
	assert.Equal(t, first, DetectAutoDeploy(again))
	assert.Len(t, first.DetectedJobs, 2)
}

func TestDetectAutoDeployNil(t *testing.T) {
	assert.Equal(t, AutoDeployResult{DetectedJobs: []DetectedJob{}}, DetectAutoDeploy(nil))
}

func TestAutoRunRuleOrder(t *testing.T) {
	kinds := make([]string, 0, len(autoRunRules))
	for _, r := range autoRunRules {
		kinds = append(kinds, r.kind)
	}
	assert.Equal(t, []string{"unrestricted", "rules", "except", "when", "if", "tags"}, kinds)
}

func TestAutoDeployFinding(t *testing.T) {
	ok := autoDeployFinding(AutoDeployResult{DetectedJobs: []DetectedJob{}})
	assert.Equal(t, model.StatusOK, ok.Status)

	warn := autoDeployFinding(AutoDeployResult{
		AutoDeploy:   true,
		DetectedJobs: []DetectedJob{{Name: "deploy_prod", Stage: "deploy", Reason: "no restrictions found"}},
	})
	assert.Equal(t, model.StatusWarn, warn.Status)
	assert.Equal(t, model.SeverityMedium, warn.Severity)
	assert.Contains(t, warn.Details, "deploy_prod (stage deploy): no restrictions found")
	assert.Equal(t, []string{"deploy_prod"}, warn.Metadata.Items)
}
