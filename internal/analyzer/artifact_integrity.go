package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

// at most this many jobs are asked for a checksum manifest
const maxArtifactJobs = 5

// latestPipelineJobs returns the jobs of the newest pipeline in the snapshot.
func latestPipelineJobs(snap *model.ProjectSnapshot) []gitlab.Job {
	latest := -1
	for id := range snap.PipelineJobs {
		if id > latest {
			latest = id
		}
	}
	if latest < 0 {
		return nil
	}
	return snap.PipelineJobs[latest]
}

// checksumManifest searches successful job artifacts for a checksum list.
// It returns false when there is nothing to look at.
func checksumManifest(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (model.Finding, bool) {
	var candidates []gitlab.Job
	for _, j := range latestPipelineJobs(snap) {
		if j.Status == successfulStatus && len(j.Artifacts) > 0 {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return model.Finding{}, false
	}
	if len(candidates) > maxArtifactJobs {
		candidates = candidates[:maxArtifactJobs]
	}

	for _, j := range candidates {
		for _, name := range checksumManifests {
			_, err := client.GetJobArtifactFile(ctx, projectID, j.ID, name)
			if err == nil {
				return newFinding("Artifact checksum manifest", model.StatusOK,
					fmt.Sprintf("Job %s publishes %s", j.Name, name)), true
			}
			if !errors.Is(err, gitlab.ErrNotFound) {
				log.Printf("Failed to read artifact %s of job %d, error: %v", name, j.ID, err)
			}
		}
	}

	return newFinding("Artifact checksum manifest", model.StatusWarn,
		fmt.Sprintf("None of %d artifact jobs of the latest pipeline publish a checksum manifest", len(candidates))), true
}

func checkArtifactIntegrity(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc != nil {
		var unsigned []string
		for _, j := range doc.Jobs {
			if !j.HasArtifacts {
				continue
			}
			scripts := append(append([]string{}, doc.Scripts...), j.Scripts...)
			if !anyMatch(signingReg, scripts) {
				unsigned = append(unsigned, j.Name)
			}
		}
		if len(unsigned) > 0 {
			findings = append(findings, newFinding("Unsigned artifacts", model.StatusWarn,
				fmt.Sprintf("%d jobs publish artifacts without a checksum or signature", len(unsigned)), unsigned...))
		}

		scripts := doc.AllScripts()
		downloads := matchingLines([]probe{{"download", downloadReg}}, scripts, maxListed)
		if len(downloads) > 0 && !anyMatch(verifyReg, scripts) {
			findings = append(findings, newFinding("Unverified downloads", model.StatusWarn,
				"CI scripts download files without verifying a checksum or signature", downloads...))
		}

		var unpinned []string
		for _, img := range doc.Images() {
			if !digestReg.MatchString(img) {
				unpinned = append(unpinned, img)
			}
		}
		if len(unpinned) > 0 {
			findings = append(findings, newFinding("Image digests", model.StatusInfo,
				fmt.Sprintf("%d images are not pinned by digest", len(unpinned)), unpinned...))
		}
	}

	if f, ok := checksumManifest(ctx, projectID, snap, client); ok {
		findings = append(findings, f)
	}

	return newResult("CICD-SEC-9", "Improper Artifact Integrity Validation", findings), nil
}
