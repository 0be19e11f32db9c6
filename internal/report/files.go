package report

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	"k8s.io/apimachinery/pkg/util/json"
)

// OutputKey is the context key holding the output file name.
// The value "output" writes into ./output/<date>.json.
const OutputKey = "output"

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getOutputFile(ctx context.Context) (string, error) {
	outfile, _ := ctx.Value(OutputKey).(string)
	if outfile == "" || outfile == "output" {
		pwd, _ := os.Getwd()
		folder := filepath.Join(pwd, "output")
		if !exists(folder) {
			err := os.MkdirAll(folder, os.FileMode(0755))
			if err != nil {
				return "", err
			}
		}
		nowStamp := time.Now().Format("2006-01-02")
		file := filepath.Join(folder, fmt.Sprintf("%s.json", nowStamp))

		return file, nil
	}

	folder := filepath.Dir(outfile)
	if !exists(folder) {
		err := os.MkdirAll(folder, os.FileMode(0755))
		if err != nil {
			return "", err
		}
	}

	return outfile, nil
}

type reportFile struct {
	*model.ScanReport
	Summary model.ScanSummary `json:"summary"`
}

// ReportToJson writes the report with its recomputed summary to the output file.
func ReportToJson(ctx context.Context, r *model.ScanReport) (string, error) {
	filename, err := getOutputFile(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(reportFile{ScanReport: r, Summary: SummarizeReport(r)})
	if err != nil {
		return "", err
	}
	err = os.WriteFile(filename, data, 0644)
	if err != nil {
		return "", err
	}

	fmt.Printf("\n")
	log.Printf("Output file is saved in: %s", config.Yellow(filename))

	return filename, nil
}
