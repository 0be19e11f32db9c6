package cli

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/store"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{arg: "42", want: 42},
		{arg: "0", wantErr: true},
		{arg: "-3", wantErr: true},
		{arg: "group/app", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseProjectID(tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseProjectID(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseProjectID(%q) got = %d, want %d", tt.arg, got, tt.want)
		}
	}
}

func TestSelectKinds(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name      string
		requested []string
		want      []string
		wantErr   bool
	}{
		{name: "configured", want: []string{"sast", "iac", "secret", "sca"}},
		{name: "requested", requested: []string{"Secret", " container "}, want: []string{"secret", "container"}},
		{name: "unknown", requested: []string{"dast"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectKinds(cfg, tt.requested)
			if (err != nil) != tt.wantErr {
				t.Fatalf("selectKinds() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("selectKinds() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "assess <project-id>", Short: "assess"}

	assert.NoError(t, ProjectArg(cmd, []string{"7"}))
	assert.Error(t, ProjectArg(cmd, nil))
	assert.Error(t, ProjectArg(cmd, []string{"7", "8"}))
	assert.Error(t, ProjectArg(cmd, []string{"seven"}))

	assert.NoError(t, NoArgs(cmd, nil))
	assert.Error(t, NoArgs(cmd, []string{"x"}))
}

func TestOutputFile(t *testing.T) {
	cfg := config.Default()

	outfile = ""
	assert.Equal(t, "output", outputFile(cfg))

	outfile = "reports/app.json"
	defer func() { outfile = "" }()
	assert.Equal(t, "reports/app.json", outputFile(cfg))
}

func TestShowReport(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	r := &model.ScanReport{
		ID:              "b6f1",
		ProjectID:       42,
		CheckResults:    []model.CheckResult{},
		ScannerFindings: []model.Finding{},
		GeneratedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Save(ctx, r, model.ScanSummary{}))

	assert.NoError(t, showReport(ctx, db, "b6f1"))

	err = showReport(ctx, db, "missing")
	assert.ErrorIs(t, err, store.ErrNoReport)
	assert.Contains(t, err.Error(), "missing")
}
