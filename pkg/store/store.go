package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	_ "github.com/mattn/go-sqlite3"
	"k8s.io/apimachinery/pkg/util/json"
)

// ErrNoReport is returned by Get for an unknown report id.
var ErrNoReport = errors.New("report not found")

// Sink receives finished reports.
type Sink interface {
	Save(ctx context.Context, report *model.ScanReport, summary model.ScanSummary) error
}

// Entry is one stored report without its findings.
type Entry struct {
	ID          string
	ProjectID   int
	GeneratedAt time.Time
	Summary     model.ScanSummary
}

// DB is the SQLite backed Sink.
type DB struct {
	DB *sql.DB
}

const reportTable = `CREATE TABLE IF NOT EXISTS reports (
	"ID" TEXT NOT NULL PRIMARY KEY,
	"ProjectID" INTEGER NOT NULL,
	"GeneratedAt" TEXT NOT NULL,
	"TotalRisks" INTEGER,
	"Critical" INTEGER,
	"High" INTEGER,
	"Medium" INTEGER,
	"Low" INTEGER,
	"Report" TEXT);`

// fixed width so that rows sort by time as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Open creates the database file and its folder when missing.
func Open(path string) (*DB, error) {
	folder := filepath.Dir(path)
	if _, err := os.Stat(folder); err != nil {
		if err := os.MkdirAll(folder, os.FileMode(0755)); err != nil {
			return nil, fmt.Errorf("failed to create folder, error: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(reportTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reports table: %w", err)
	}

	return &DB{DB: db}, nil
}

func (s *DB) Close() error {
	return s.DB.Close()
}

func (s *DB) Save(ctx context.Context, r *model.ScanReport, summary model.ScanSummary) error {
	if r == nil {
		return errors.New("nil report")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	sqlRow := `INSERT OR REPLACE INTO reports
				  ("ID", "ProjectID", "GeneratedAt", "TotalRisks", "Critical", "High", "Medium", "Low", "Report")
				   VALUES
				  (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.DB.ExecContext(ctx, sqlRow, r.ID, r.ProjectID,
		r.GeneratedAt.UTC().Format(timeLayout),
		summary.TotalRisks, summary.Critical, summary.High,
		summary.Medium, summary.Low, string(data))

	return err
}

// History lists stored reports newest first. A project id of zero lists every project.
func (s *DB) History(ctx context.Context, projectID, limit int) ([]Entry, error) {
	entries := []Entry{}

	sqlRow := `SELECT "ID", "ProjectID", "GeneratedAt", "TotalRisks", "Critical", "High", "Medium", "Low"
				FROM reports WHERE (? = 0 OR "ProjectID" = ?) ORDER BY "GeneratedAt" DESC LIMIT ?`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.DB.QueryContext(ctx, sqlRow, projectID, projectID, limit)
	if err != nil {
		return entries, err
	}

	defer rows.Close()

	for rows.Next() {
		var e Entry
		var generated string
		err = rows.Scan(&e.ID, &e.ProjectID, &generated,
			&e.Summary.TotalRisks, &e.Summary.Critical, &e.Summary.High,
			&e.Summary.Medium, &e.Summary.Low)
		if err != nil {
			return entries, err
		}

		e.GeneratedAt, err = time.Parse(timeLayout, generated)
		if err != nil {
			return entries, err
		}

		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return entries, err
	}

	return entries, nil
}

// Get loads a stored report by id.
func (s *DB) Get(ctx context.Context, id string) (*model.ScanReport, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT "Report" FROM reports WHERE "ID" = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, err
	}

	r := &model.ScanReport{}
	if err := json.Unmarshal([]byte(data), r); err != nil {
		return nil, fmt.Errorf("invalid stored report %s: %w", id, err)
	}
	return r, nil
}
