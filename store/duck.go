package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// ArchiveDB is an in-memory DuckDB connection with `ticks` and `drives` views
// over every parquet batch under the given roots.
type ArchiveDB struct {
	db *sql.DB
}

// OutcomeSummary aggregates finished drives by how they ended.
type OutcomeSummary struct {
	Reason       string
	Drives       int64
	AvgPlays     float64
	AvgYards     float64
	TotalPoints  int64
	LongestDrive int32
}

// SideSummary aggregates finished drives per possession.
type SideSummary struct {
	Possession  string
	Drives      int64
	Touchdowns  int64
	TotalPoints int64
	AvgYards    float64
}

func OpenArchiveDB(roots []string) (*ArchiveDB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	_, _ = db.Exec("PRAGMA threads=4")

	if err := createView(db, "ticks", TicksDir, roots, emptyTicksSQL); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createView(db, "drives", DrivesDir, roots, emptyDrivesSQL); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ArchiveDB{db: db}, nil
}

func (a *ArchiveDB) Close() error {
	return a.db.Close()
}

// DB exposes the connection for ad-hoc queries.
func (a *ArchiveDB) DB() *sql.DB {
	return a.db
}

func (a *ArchiveDB) Outcomes(ctx context.Context) ([]OutcomeSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT reason,
		       count(*)                      AS drives,
		       coalesce(avg(plays), 0)       AS avg_plays,
		       coalesce(avg(yards_gained), 0) AS avg_yards,
		       coalesce(sum(points), 0)::BIGINT AS total_points,
		       coalesce(max(yards_gained), 0) AS longest
		FROM drives
		GROUP BY reason
		ORDER BY drives DESC, reason`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeSummary
	for rows.Next() {
		var s OutcomeSummary
		if err := rows.Scan(&s.Reason, &s.Drives, &s.AvgPlays, &s.AvgYards, &s.TotalPoints, &s.LongestDrive); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (a *ArchiveDB) Sides(ctx context.Context) ([]SideSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT possession,
		       count(*) AS drives,
		       count(*) FILTER (WHERE reason = 'Touchdown') AS touchdowns,
		       coalesce(sum(points), 0)::BIGINT AS total_points,
		       coalesce(avg(yards_gained), 0) AS avg_yards
		FROM drives
		GROUP BY possession
		ORDER BY possession`)
	if err != nil {
		return nil, fmt.Errorf("query sides: %w", err)
	}
	defer rows.Close()

	var out []SideSummary
	for rows.Next() {
		var s SideSummary
		if err := rows.Scan(&s.Possession, &s.Drives, &s.Touchdowns, &s.TotalPoints, &s.AvgYards); err != nil {
			return nil, fmt.Errorf("scan side: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TickCount returns the number of archived ticks, accepted or not.
func (a *ArchiveDB) TickCount(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.QueryRowContext(ctx, `SELECT count(*) FROM ticks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return n, nil
}

const emptyTicksSQL = `SELECT * FROM (
	SELECT NULL::VARCHAR AS game_id, NULL::INTEGER AS drive, NULL::INTEGER AS seq, NULL::INTEGER AS tick,
	       NULL::VARCHAR AS intent, NULL::BOOLEAN AS accepted, NULL::VARCHAR[] AS events,
	       NULL::VARCHAR AS phase, NULL::VARCHAR AS reason, NULL::VARCHAR AS possession,
	       NULL::INTEGER AS down, NULL::INTEGER AS yards_to_go, NULL::INTEGER AS los,
	       NULL::INTEGER AS marker, NULL::INTEGER AS clock, NULL::INTEGER AS score_home,
	       NULL::INTEGER AS score_away, NULL::INTEGER AS carrier, NULL::INTEGER[] AS actor_role,
	       NULL::INTEGER[] AS actor_x, NULL::INTEGER[] AS actor_y, NULL::VARCHAR AS source
) WHERE 1=0`

const emptyDrivesSQL = `SELECT * FROM (
	SELECT NULL::VARCHAR AS game_id, NULL::INTEGER AS drive, NULL::VARCHAR AS possession,
	       NULL::INTEGER AS start_los, NULL::INTEGER AS end_los, NULL::INTEGER AS yards_gained,
	       NULL::INTEGER AS plays, NULL::INTEGER AS ticks, NULL::VARCHAR AS reason,
	       NULL::INTEGER AS points, NULL::VARCHAR AS source, NULL::BIGINT AS created_ns
) WHERE 1=0`

// createView points a view at <root>/<sub>/**/*.parquet for every root that has
// at least one batch. tmp/ directories are excluded.
func createView(db *sql.DB, view, sub string, roots []string, emptySQL string) error {
	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		dir := filepath.Join(root, sub)
		if !hasParquet(dir) {
			continue
		}
		globs = append(globs, "'"+escapeSQLString(filepath.Join(dir, "**", "*.parquet"))+"'")
	}

	sqlText := "CREATE OR REPLACE VIEW " + view + " AS " + emptySQL
	if len(globs) > 0 {
		sqlText = "CREATE OR REPLACE VIEW " + view + ` AS
			SELECT * EXCLUDE (filename) FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
			WHERE NOT contains(filename, '/tmp/')`
	}
	if _, err := db.Exec(sqlText); err != nil {
		return fmt.Errorf("create %s view: %w", view, err)
	}
	return nil
}

func hasParquet(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == "tmp" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
