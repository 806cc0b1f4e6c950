// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/context"
)

// DB is a high-level interface to the results database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql        *sql.DB // underlying database connection
	driverName string  // name of underlying driver for SQL differences
	// prepared statements
	insertArtifact    *sql.Stmt
	selectArtifact    *sql.Stmt
	insertPstatSeries *sql.Stmt
	selectPstatSeries *sql.Stmt
	insertPstat       *sql.Stmt
	insertQuerySeries *sql.Stmt
	selectQuerySeries *sql.Stmt
	insertQueryDatum  *sql.Stmt
	insertBootstrap   *sql.Stmt
	insertPRBuild     *sql.Stmt
}

// OpenSQL creates a DB connection based on a driver name and data
// source name.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db, driverName: driverName}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a
// connection to driverName. It is used by the sqlite3 package to
// enable foreign keys.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// Artifact types. Commits of the tracked repository are "master";
// named artifacts such as releases are "release".
const (
	artifactMaster  = "master"
	artifactRelease = "release"
)

// createTmpl is a template for the table creation statements. It is
// executed with . as a map containing one element whose key is the
// driver name and whose value is true.
const createTmpl = `
CREATE TABLE IF NOT EXISTS Artifact (
	ArtifactID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Name VARCHAR(64) NOT NULL UNIQUE,
	Date TIMESTAMP NULL,
	Type VARCHAR(8) NOT NULL
);
CREATE TABLE IF NOT EXISTS PstatSeries (
	SeriesID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Benchmark VARCHAR(64) NOT NULL,
	Profile VARCHAR(16) NOT NULL,
	Scenario VARCHAR(64) NOT NULL,
	Metric VARCHAR(64) NOT NULL,
	UNIQUE (Benchmark, Profile, Scenario, Metric)
);
CREATE TABLE IF NOT EXISTS Pstat (
	SeriesID BIGINT UNSIGNED NOT NULL,
	ArtifactID BIGINT UNSIGNED NOT NULL,
	Value DOUBLE NOT NULL,
	PRIMARY KEY (SeriesID, ArtifactID)
);
CREATE TABLE IF NOT EXISTS SelfProfileSeries (
	SeriesID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Benchmark VARCHAR(64) NOT NULL,
	Profile VARCHAR(16) NOT NULL,
	Scenario VARCHAR(64) NOT NULL,
	QueryLabel VARCHAR(128) NOT NULL,
	UNIQUE (Benchmark, Profile, Scenario, QueryLabel)
);
CREATE TABLE IF NOT EXISTS SelfProfileQuery (
	SeriesID BIGINT UNSIGNED NOT NULL,
	ArtifactID BIGINT UNSIGNED NOT NULL,
	SelfTime BIGINT NOT NULL,
	BlockedTime BIGINT NOT NULL,
	IncrementalLoadTime BIGINT NOT NULL,
	CacheHits BIGINT UNSIGNED NOT NULL,
	InvocationCount BIGINT UNSIGNED NOT NULL,
	PRIMARY KEY (SeriesID, ArtifactID)
);
CREATE TABLE IF NOT EXISTS Bootstrap (
	ArtifactID BIGINT UNSIGNED NOT NULL,
	Benchmark VARCHAR(64) NOT NULL,
	DurationNs BIGINT UNSIGNED NOT NULL,
	PRIMARY KEY (ArtifactID, Benchmark)
);
CREATE TABLE IF NOT EXISTS PullRequestBuild (
	Sha VARCHAR(64) NOT NULL PRIMARY KEY,
	PR BIGINT UNSIGNED NULL,
	ParentSha VARCHAR(64) NOT NULL
);
`

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := template.Must(template.New("create").Parse(createTmpl)).Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on the write-path statements
// and stores the result in the appropriate fields of db.
func (db *DB) prepareStatements(driverName string) error {
	var err error
	q := func(sql string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		stmt, err = db.sql.Prepare(sql)
		return stmt
	}
	insertIgnore := "INSERT IGNORE"
	if driverName == "sqlite3" {
		insertIgnore = "INSERT OR IGNORE"
	}
	db.insertArtifact = q(insertIgnore + " INTO Artifact(Name, Date, Type) VALUES (?, ?, ?)")
	db.selectArtifact = q("SELECT ArtifactID FROM Artifact WHERE Name = ?")
	db.insertPstatSeries = q(insertIgnore + " INTO PstatSeries(Benchmark, Profile, Scenario, Metric) VALUES (?, ?, ?, ?)")
	db.selectPstatSeries = q("SELECT SeriesID FROM PstatSeries WHERE Benchmark = ? AND Profile = ? AND Scenario = ? AND Metric = ?")
	db.insertPstat = q("REPLACE INTO Pstat(SeriesID, ArtifactID, Value) VALUES (?, ?, ?)")
	db.insertQuerySeries = q(insertIgnore + " INTO SelfProfileSeries(Benchmark, Profile, Scenario, QueryLabel) VALUES (?, ?, ?, ?)")
	db.selectQuerySeries = q("SELECT SeriesID FROM SelfProfileSeries WHERE Benchmark = ? AND Profile = ? AND Scenario = ? AND QueryLabel = ?")
	db.insertQueryDatum = q("REPLACE INTO SelfProfileQuery(SeriesID, ArtifactID, SelfTime, BlockedTime, IncrementalLoadTime, CacheHits, InvocationCount) VALUES (?, ?, ?, ?, ?, ?, ?)")
	db.insertBootstrap = q("REPLACE INTO Bootstrap(ArtifactID, Benchmark, DurationNs) VALUES (?, ?, ?)")
	db.insertPRBuild = q("REPLACE INTO PullRequestBuild(Sha, PR, ParentSha) VALUES (?, ?, ?)")
	return err
}

// ArtifactRowID returns the storage row ID for the artifact,
// recording the artifact first if it is not yet known.
func (db *DB) ArtifactRowID(ctx context.Context, a ArtifactID) (int32, error) {
	var date interface{}
	typ := artifactRelease
	if a.IsCommit() {
		date = a.Commit.Date.Time
		typ = artifactMaster
	}
	if _, err := db.insertArtifact.ExecContext(ctx, a.Name(), date, typ); err != nil {
		return 0, err
	}
	var id int32
	if err := db.selectArtifact.QueryRowContext(ctx, a.Name()).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (db *DB) pstatSeriesRowID(ctx context.Context, s PstatSeries) (int32, error) {
	if _, err := db.insertPstatSeries.ExecContext(ctx, string(s.Benchmark), string(s.Profile), string(s.Scenario), string(s.Metric)); err != nil {
		return 0, err
	}
	var id int32
	if err := db.selectPstatSeries.QueryRowContext(ctx, string(s.Benchmark), string(s.Profile), string(s.Scenario), string(s.Metric)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (db *DB) querySeriesRowID(ctx context.Context, s QuerySeries) (int32, error) {
	if _, err := db.insertQuerySeries.ExecContext(ctx, string(s.Benchmark), string(s.Profile), string(s.Scenario), string(s.QueryLabel)); err != nil {
		return 0, err
	}
	var id int32
	if err := db.selectQuerySeries.QueryRowContext(ctx, string(s.Benchmark), string(s.Profile), string(s.Scenario), string(s.QueryLabel)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// RecordPstat stores one process-statistic value, replacing any
// previous value for the same series and artifact.
func (db *DB) RecordPstat(ctx context.Context, s PstatSeries, a ArtifactID, value float64) error {
	sid, err := db.pstatSeriesRowID(ctx, s)
	if err != nil {
		return err
	}
	aid, err := db.ArtifactRowID(ctx, a)
	if err != nil {
		return err
	}
	_, err = db.insertPstat.ExecContext(ctx, sid, aid, value)
	return err
}

// RecordSelfProfile stores one self-profile query record, replacing
// any previous record for the same series and artifact.
func (db *DB) RecordSelfProfile(ctx context.Context, s QuerySeries, a ArtifactID, d QueryDatum) error {
	sid, err := db.querySeriesRowID(ctx, s)
	if err != nil {
		return err
	}
	aid, err := db.ArtifactRowID(ctx, a)
	if err != nil {
		return err
	}
	_, err = db.insertQueryDatum.ExecContext(ctx, sid, aid,
		int64(d.SelfTime), int64(d.BlockedTime), int64(d.IncrementalLoadTime),
		d.CacheHits, d.InvocationCount)
	return err
}

// RecordBootstrap stores the compiler bootstrap duration measured for
// one benchmark at one artifact.
func (db *DB) RecordBootstrap(ctx context.Context, a ArtifactID, benchmark Benchmark, d time.Duration) error {
	aid, err := db.ArtifactRowID(ctx, a)
	if err != nil {
		return err
	}
	_, err = db.insertBootstrap.ExecContext(ctx, aid, string(benchmark), int64(d))
	return err
}

// RecordPullRequestBuild stores the pull request association for a
// merged commit.
func (db *DB) RecordPullRequestBuild(ctx context.Context, sha string, pr uint32, parentSha string) error {
	_, err := db.insertPRBuild.ExecContext(ctx, sha, pr, parentSha)
	return err
}

// CountArtifacts returns the number of recorded artifacts.
func (db *DB) CountArtifacts() (int, error) {
	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Artifact").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count artifacts: %v", err)
	}
	return count, nil
}

// Close closes the database connections, releasing any open
// resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{
		db.insertArtifact, db.selectArtifact,
		db.insertPstatSeries, db.selectPstatSeries, db.insertPstat,
		db.insertQuerySeries, db.selectQuerySeries, db.insertQueryDatum,
		db.insertBootstrap, db.insertPRBuild,
	} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}

// A queryer issues SQL reads against either the whole database or a
// single transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// A Conn reads results from one database view: the DB itself, or a
// transaction's snapshot.
type Conn struct {
	q queryer
}

// Conn returns a Conn reading directly from the database.
func (db *DB) Conn() *Conn {
	return &Conn{q: db.sql}
}

// A Tx is a database transaction. Reads issued through its Conn
// observe a single consistent view of the data.
type Tx struct {
	tx   *sql.Tx
	conn *Conn
}

// Transaction starts a transaction for a batch of reads.
func (db *DB) Transaction(ctx context.Context) (*Tx, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, conn: &Conn{q: tx}}, nil
}

// Conn returns the Conn reading from the transaction's snapshot.
func (tx *Tx) Conn() *Conn {
	return tx.conn
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.tx.Commit()
}

// Rollback aborts the transaction. It is safe to call after Commit,
// so callers may defer it unconditionally.
func (tx *Tx) Rollback() error {
	err := tx.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// placeholders returns a "(?, ?, ...)" SQL fragment with n slots.
func placeholders(n int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('?')
	}
	b.WriteByte(')')
	return b.String()
}

// GetPstats returns the stored values for each requested series at
// each requested artifact row. The result has one inner slice per
// series, with one entry per artifact in the order given; entries are
// nil where no value is stored. An artifact row of 0 means the
// artifact is not in the database and always yields nil.
func (c *Conn) GetPstats(ctx context.Context, series []int32, artifacts []int32) ([][]*float64, error) {
	out := make([][]*float64, len(series))
	for i := range out {
		out[i] = make([]*float64, len(artifacts))
	}
	sidIdx := make(map[int32]int, len(series))
	args := make([]interface{}, 0, len(series)+len(artifacts))
	for i, sid := range series {
		sidIdx[sid] = i
		args = append(args, sid)
	}
	aidIdx := make(map[int32][]int)
	known := 0
	for i, aid := range artifacts {
		if aid == 0 {
			continue
		}
		if len(aidIdx[aid]) == 0 {
			args = append(args, aid)
			known++
		}
		aidIdx[aid] = append(aidIdx[aid], i)
	}
	if len(series) == 0 || known == 0 {
		return out, nil
	}
	query := "SELECT SeriesID, ArtifactID, Value FROM Pstat WHERE SeriesID IN " +
		placeholders(len(series)) + " AND ArtifactID IN " + placeholders(known)
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sid, aid int32
			value    float64
		)
		if err := rows.Scan(&sid, &aid, &value); err != nil {
			return nil, err
		}
		si, ok := sidIdx[sid]
		if !ok {
			continue
		}
		for _, ai := range aidIdx[aid] {
			v := value
			out[si][ai] = &v
		}
	}
	return out, rows.Err()
}

// GetSelfProfile returns every self-profile query record stored for
// one benchmark configuration at one artifact row, keyed by query
// label.
func (c *Conn) GetSelfProfile(ctx context.Context, artifact int32, benchmark Benchmark, profile Profile, scenario Scenario) (map[QueryLabel]QueryDatum, error) {
	const query = `
SELECT s.QueryLabel, q.SelfTime, q.BlockedTime, q.IncrementalLoadTime, q.CacheHits, q.InvocationCount
FROM SelfProfileQuery q
INNER JOIN SelfProfileSeries s ON s.SeriesID = q.SeriesID
WHERE q.ArtifactID = ? AND s.Benchmark = ? AND s.Profile = ? AND s.Scenario = ?`
	rows, err := c.q.QueryContext(ctx, query, artifact, string(benchmark), string(profile), string(scenario))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[QueryLabel]QueryDatum)
	for rows.Next() {
		var (
			label               string
			self, blocked, incr int64
			hits, invocations   uint32
		)
		if err := rows.Scan(&label, &self, &blocked, &incr, &hits, &invocations); err != nil {
			return nil, err
		}
		out[QueryLabel(label)] = QueryDatum{
			SelfTime:            time.Duration(self),
			BlockedTime:         time.Duration(blocked),
			IncrementalLoadTime: time.Duration(incr),
			CacheHits:           hits,
			InvocationCount:     invocations,
		}
	}
	return out, rows.Err()
}

// GetSelfProfileQuery returns the self-profile record for one series
// at one artifact row, or nil if none is stored.
func (c *Conn) GetSelfProfileQuery(ctx context.Context, series, artifact int32) (*QueryDatum, error) {
	const query = `
SELECT SelfTime, BlockedTime, IncrementalLoadTime, CacheHits, InvocationCount
FROM SelfProfileQuery WHERE SeriesID = ? AND ArtifactID = ?`
	var (
		self, blocked, incr int64
		hits, invocations   uint32
	)
	err := c.q.QueryRowContext(ctx, query, series, artifact).Scan(&self, &blocked, &incr, &hits, &invocations)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &QueryDatum{
		SelfTime:            time.Duration(self),
		BlockedTime:         time.Duration(blocked),
		IncrementalLoadTime: time.Duration(incr),
		CacheHits:           hits,
		InvocationCount:     invocations,
	}, nil
}

// GetBootstrap returns the compiler bootstrap durations stored for
// the requested artifact rows, keyed by benchmark. Each slice has one
// entry per artifact in the order given; entries are nil where no
// duration is stored.
func (c *Conn) GetBootstrap(ctx context.Context, artifacts []int32) (map[Benchmark][]*time.Duration, error) {
	out := make(map[Benchmark][]*time.Duration)
	aidIdx := make(map[int32][]int)
	args := make([]interface{}, 0, len(artifacts))
	known := 0
	for i, aid := range artifacts {
		if aid == 0 {
			continue
		}
		if len(aidIdx[aid]) == 0 {
			args = append(args, aid)
			known++
		}
		aidIdx[aid] = append(aidIdx[aid], i)
	}
	if known == 0 {
		return out, nil
	}
	query := "SELECT ArtifactID, Benchmark, DurationNs FROM Bootstrap WHERE ArtifactID IN " + placeholders(known)
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			aid int32
			b   string
			ns  int64
		)
		if err := rows.Scan(&aid, &b, &ns); err != nil {
			return nil, err
		}
		durs, ok := out[Benchmark(b)]
		if !ok {
			durs = make([]*time.Duration, len(artifacts))
			out[Benchmark(b)] = durs
		}
		for _, ai := range aidIdx[aid] {
			d := time.Duration(ns)
			durs[ai] = &d
		}
	}
	return out, rows.Err()
}

// PrOf returns the pull request merged as the given commit, or 0 if
// the association is not recorded.
func (c *Conn) PrOf(ctx context.Context, sha string) (uint32, error) {
	var pr sql.NullInt64
	err := c.q.QueryRowContext(ctx, "SELECT PR FROM PullRequestBuild WHERE Sha = ?", sha).Scan(&pr)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !pr.Valid {
		return 0, nil
	}
	return uint32(pr.Int64), nil
}

// ParentOf returns the recorded parent of the given commit, or "" if
// the association is not recorded.
func (c *Conn) ParentOf(ctx context.Context, sha string) (string, error) {
	var parent string
	err := c.q.QueryRowContext(ctx, "SELECT ParentSha FROM PullRequestBuild WHERE Sha = ?", sha).Scan(&parent)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return parent, nil
}
