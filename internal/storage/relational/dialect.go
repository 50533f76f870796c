package relational

import (
	"fmt"
	"strconv"
	"strings"

	// Blank imports register the three database/sql drivers we accept:
	//   "sqlite3" (cgo), "sqlite" (pure Go) and "pgx" (PostgreSQL).
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// dialect captures the few places where SQLite and PostgreSQL disagree.
// Queries are written once with ? placeholders and GROUP_CONCAT-style
// aggregation, then adapted here.
type dialect struct {
	driver string
	sqlite bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return dialect{driver: driver, sqlite: true}, nil
	case "pgx":
		return dialect{driver: driver}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// dsn enables foreign keys on every SQLite connection. Each driver spells
// the pragma differently.
func (d dialect) dsn(dsn string) string {
	var param string
	switch d.driver {
	case "sqlite3":
		param = "_foreign_keys=on"
	case "sqlite":
		param = "_pragma=foreign_keys(1)"
	default:
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + "?" + param
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d.sqlite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// groupConcat aggregates expr into a comma-joined list ordered by orderBy.
func (d dialect) groupConcat(expr, orderBy string) string {
	fn := "GROUP_CONCAT"
	if !d.sqlite {
		fn = "string_agg"
	}
	return fmt.Sprintf("%s(%s, ',' ORDER BY %s)", fn, expr, orderBy)
}

// schema returns the CREATE TABLE statements in dependency order.
//
// seq records insertion order on every table; Course.assign_seq records the
// order in which courses were given to their instructor. Both are read back
// by the fetches so lists come out in the order they were built.
func (d dialect) schema() []string {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if !d.sqlite {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS Instructor (
			instructor_id TEXT    PRIMARY KEY,
			name          TEXT    NOT NULL,
			age           INTEGER NOT NULL,
			email         TEXT    NOT NULL,
			seq           INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS Student (
			student_id TEXT    PRIMARY KEY,
			name       TEXT    NOT NULL,
			age        INTEGER NOT NULL,
			email      TEXT    NOT NULL,
			seq        INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS Course (
			course_id     TEXT    PRIMARY KEY,
			course_name   TEXT    NOT NULL,
			instructor_id TEXT    NULL REFERENCES Instructor(instructor_id),
			seq           INTEGER NOT NULL,
			assign_seq    INTEGER NULL
		)`,
		`CREATE TABLE IF NOT EXISTS Enrollment (
			` + seq + `,
			course_id  TEXT NOT NULL REFERENCES Course(course_id),
			student_id TEXT NOT NULL REFERENCES Student(student_id),
			UNIQUE (course_id, student_id)
		)`,
	}
}

// nextSeq is a scalar subquery yielding the next value of column in table.
func nextSeq(table, column string) string {
	return fmt.Sprintf("(SELECT COALESCE(MAX(%s), 0) + 1 FROM %s)", column, table)
}
