package analyzer

import (
	"fmt"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	regexp "github.com/wasilibs/go-re2"
)

var (
	prodEnvironmentReg = regexp.MustCompile(`(?i)prod|production|live|release`)
	prodJobNameReg     = regexp.MustCompile(`(?i)deploy.*prod|prod.*deploy|release.*prod|prod.*release|live.*deploy|production`)
	prodStageReg       = regexp.MustCompile(`(?i)deploy|release|prod`)
	prodTagReg         = regexp.MustCompile(`(?i)prod|production|live`)
	prodConditionReg   = regexp.MustCompile(`(?i)main|master|production|prod`)

	productionTags = []string{"production", "prod", "prod-runner", "production-runner", "deploy-prod", "live"}
)

type DetectedJob struct {
	Name        string `json:"name"`
	Stage       string `json:"stage"`
	Environment string `json:"environment,omitempty"`
	Reason      string `json:"reason"`
}

type AutoDeployResult struct {
	AutoDeploy   bool          `json:"autoDeploy"`
	DetectedJobs []DetectedJob `json:"detectedJobs"`
}

// autoRunRule is one row of the precedence table. The first rule whose
// applies predicate holds decides whether the job starts on its own.
type autoRunRule struct {
	kind    string
	applies func(j *CIJob) bool
	autoRun func(j *CIJob) bool
	reason  string
}

func isManual(j *CIJob) bool {
	return strings.EqualFold(j.When, "manual")
}

func hasProductionTag(j *CIJob) bool {
	for _, t := range j.Tags {
		for _, p := range productionTags {
			if strings.EqualFold(t, p) {
				return true
			}
		}
	}
	return false
}

func always(*CIJob) bool { return true }

var autoRunRules = []autoRunRule{
	{
		kind: "unrestricted",
		applies: func(j *CIJob) bool {
			return !j.HasRules && !j.HasOnly && !j.HasExcept && !j.HasWhen && !j.HasIf
		},
		autoRun: always,
		reason:  "no restrictions found",
	},
	{
		kind:    "rules",
		applies: func(j *CIJob) bool { return j.HasRules },
		autoRun: func(j *CIJob) bool {
			for _, r := range j.Rules {
				when := strings.ToLower(r.When)
				if when == "manual" || when == "never" {
					continue
				}
				if r.If == "" || prodConditionReg.MatchString(r.If) {
					return true
				}
			}
			return false
		},
		reason: "rules allow an automatic run",
	},
	{
		kind: "except",
		applies: func(j *CIJob) bool {
			if !j.HasExcept {
				return false
			}
			for _, e := range j.Except {
				if strings.EqualFold(e, "manual") {
					return false
				}
			}
			return true
		},
		autoRun: always,
		reason:  "except does not require a manual action",
	},
	{
		kind:    "when",
		applies: func(j *CIJob) bool { return !isManual(j) },
		autoRun: always,
		reason:  "when is not manual",
	},
	{
		kind: "if",
		applies: func(j *CIJob) bool {
			return j.HasIf && !isManual(j) && prodConditionReg.MatchString(j.If)
		},
		autoRun: always,
		reason:  "if condition targets a production branch",
	},
	{
		kind: "tags",
		applies: func(j *CIJob) bool {
			return !isManual(j) && (hasProductionTag(j) || anyMatch(prodTagReg, j.Tags))
		},
		autoRun: always,
		reason:  "runs on a production runner without manual gate",
	},
}

func anyMatch(reg *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if reg.MatchString(v) {
			return true
		}
	}
	return false
}

// isProductionJob reports whether the job targets production.
func isProductionJob(j *CIJob) bool {
	if j.Environment != "" && prodEnvironmentReg.MatchString(j.Environment) {
		return true
	}
	if prodJobNameReg.MatchString(j.Name) {
		return true
	}
	if prodStageReg.MatchString(j.Stage) {
		return true
	}
	return hasProductionTag(j) || anyMatch(prodTagReg, j.Tags)
}

// autoRunReason evaluates the rule table; ok is false when the job needs a manual action.
func autoRunReason(j *CIJob) (string, bool) {
	for _, rule := range autoRunRules {
		if !rule.applies(j) {
			continue
		}
		if rule.autoRun(j) {
			return rule.reason, true
		}
		return "", false
	}
	return "", false
}

// DetectAutoDeploy finds production jobs that start without a manual action.
// It only reads doc, so equal documents give equal results.
func DetectAutoDeploy(doc *CIDocument) AutoDeployResult {
	res := AutoDeployResult{DetectedJobs: []DetectedJob{}}
	if doc == nil {
		return res
	}

	stages := map[string]bool{}
	for _, s := range doc.DeclaredStages() {
		stages[s] = true
	}

	for _, j := range doc.Jobs {
		if !stages[j.Stage] || !isProductionJob(j) {
			continue
		}

		reason, ok := autoRunReason(j)
		if !ok {
			continue
		}

		res.DetectedJobs = append(res.DetectedJobs, DetectedJob{
			Name:        j.Name,
			Stage:       j.Stage,
			Environment: j.Environment,
			Reason:      reason,
		})
	}

	res.AutoDeploy = len(res.DetectedJobs) > 0
	return res
}

// autoDeployFinding turns the detector result into the flow control finding.
func autoDeployFinding(res AutoDeployResult) model.Finding {
	if !res.AutoDeploy {
		return newFinding("Auto deploy to production", model.StatusOK,
			"No production job runs without a manual action")
	}

	items := make([]string, 0, len(res.DetectedJobs))
	details := make([]string, 0, len(res.DetectedJobs))
	for _, j := range res.DetectedJobs {
		items = append(items, j.Name)
		details = append(details, fmt.Sprintf("%s (stage %s): %s", j.Name, j.Stage, j.Reason))
	}

	return newFinding("Auto deploy to production", model.StatusWarn,
		"Production deployment runs automatically: "+strings.Join(details, "; "), items...)
}
