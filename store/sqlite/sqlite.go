// Package sqlite is the reference Store implementation backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/labelmaker/db"
	"github.com/teranos/labelmaker/errors"
	"github.com/teranos/labelmaker/label"
	"github.com/teranos/labelmaker/store"
)

// Store is the SQLite-backed implementation of store.Store.
type Store struct {
	path string
	log  *zap.SugaredLogger
	db   *sql.DB
}

// New creates a Store backed by the SQLite database at path. Init must be
// called before use.
func New(path string, log *zap.SugaredLogger) *Store {
	return &Store{path: path, log: log}
}

func (s *Store) Init(ctx context.Context) error {
	conn, err := db.OpenWithMigrations(s.path, s.log)
	if err != nil {
		return errors.Wrap(err, "initialize label store")
	}
	s.db = conn
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, l label.Label) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO labels (src, uri, cid, val, neg, cts, exp, sig) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Src, l.URI, nullable(l.CID), l.Val, l.Neg, l.Cts, nullable(l.Exp), l.Sig,
	)
	if err != nil {
		return 0, errors.Wrap(err, "append label")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "read assigned label id")
	}
	return id, nil
}

func (s *Store) Query(ctx context.Context, params store.QueryParams) ([]label.Stored, error) {
	var where []string
	var args []interface{}

	if len(params.URIPatterns) > 0 {
		var uriClauses []string
		var uriArgs []interface{}
		for _, p := range params.URIPatterns {
			like, noFilter, err := store.CompilePattern(p)
			if err != nil {
				return nil, err
			}
			if noFilter {
				uriClauses = nil
				uriArgs = nil
				break
			}
			uriClauses = append(uriClauses, "uri LIKE ? ESCAPE '\\'")
			uriArgs = append(uriArgs, like)
		}
		if len(uriClauses) > 0 {
			where = append(where, "("+strings.Join(uriClauses, " OR ")+")")
			args = append(args, uriArgs...)
		}
	}

	if len(params.Sources) > 0 {
		placeholders := make([]string, len(params.Sources))
		for i, src := range params.Sources {
			placeholders[i] = "?"
			args = append(args, src)
		}
		where = append(where, "src IN ("+strings.Join(placeholders, ",")+")")
	}

	if params.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, params.AfterID)
	}

	query := `SELECT id, src, uri, cid, val, neg, cts, exp, sig FROM labels`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if params.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, params.Limit)
	}

	return s.queryRows(ctx, query, args...)
}

func (s *Store) Scan(ctx context.Context, afterID int64) ([]label.Stored, error) {
	return s.queryRows(ctx,
		`SELECT id, src, uri, cid, val, neg, cts, exp, sig FROM labels WHERE id > ? ORDER BY id ASC`,
		afterID,
	)
}

func (s *Store) MaxID(ctx context.Context) (int64, error) {
	var maxID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM labels`).Scan(&maxID)
	if err != nil {
		return 0, errors.Wrap(err, "query max label id")
	}
	if !maxID.Valid {
		return 0, nil
	}
	return maxID.Int64, nil
}

func (s *Store) queryRows(ctx context.Context, query string, args ...interface{}) ([]label.Stored, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query labels")
	}
	defer rows.Close()

	var results []label.Stored
	for rows.Next() {
		var (
			id       int64
			src, uri string
			cid, exp sql.NullString
			val      string
			neg      bool
			cts      string
			sig      []byte
		)
		if err := rows.Scan(&id, &src, &uri, &cid, &val, &neg, &cts, &exp, &sig); err != nil {
			return nil, errors.Wrap(err, "scan label row")
		}
		results = append(results, label.Stored{
			ID: id,
			Label: label.Label{
				Ver: 1,
				Src: src,
				URI: uri,
				CID: cid.String,
				Val: val,
				Neg: neg,
				Cts: cts,
				Exp: exp.String,
				Sig: sig,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate label rows")
	}
	return results, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
