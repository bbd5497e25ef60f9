package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MySQLStore keeps each document as a JSON body in the documents table.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	const query = `SELECT body, revision FROM documents WHERE collection = ? AND doc_key = ?`
	row := s.db.QueryRowContext(ctx, query, collection, key)
	var body []byte
	var revision int64
	if err := row.Scan(&body, &revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	fields, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	return &Document{Key: key, Fields: fields, Revision: strconv.FormatInt(revision, 10)}, nil
}

func (s *MySQLStore) Set(ctx context.Context, collection, key string, fields Fields) error {
	body, err := encodeBody(fields)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO documents (collection, doc_key, body, revision)
VALUES (?, ?, ?, 1)
ON DUPLICATE KEY UPDATE body = VALUES(body), revision = revision + 1`
	if _, err := s.db.ExecContext(ctx, query, collection, key, body); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

func (s *MySQLStore) Update(ctx context.Context, collection, key string, fields Fields, revision string) error {
	rev, err := strconv.ParseInt(revision, 10, 64)
	if err != nil {
		return ErrConflict
	}
	body, err := encodeBody(fields)
	if err != nil {
		return err
	}
	const query = `
UPDATE documents SET body = ?, revision = revision + 1
WHERE collection = ? AND doc_key = ? AND revision = ?`
	res, err := s.db.ExecContext(ctx, query, body, collection, key, rev)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("document rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *MySQLStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT doc_key, body, revision FROM documents WHERE collection = ?`)
	for _, f := range q.Where {
		sb.WriteString(` AND JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ?`)
		args = append(args, jsonPath(f.Field), filterText(f.Value))
	}
	if q.OrderBy != "" {
		sb.WriteString(` ORDER BY JSON_UNQUOTE(JSON_EXTRACT(body, ?))`)
		args = append(args, jsonPath(q.OrderBy))
		if q.Desc {
			sb.WriteString(` DESC`)
		}
	} else {
		sb.WriteString(` ORDER BY doc_key`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var key string
		var body []byte
		var revision int64
		if err := rows.Scan(&key, &body, &revision); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Key: key, Fields: fields, Revision: strconv.FormatInt(revision, 10)})
	}
	return docs, rows.Err()
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func jsonPath(field string) string {
	return `$."` + field + `"`
}

// filterText renders a filter value the way JSON_UNQUOTE prints the stored one.
func filterText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(TimeLayout)
	default:
		return fmt.Sprint(normalizeValue(v))
	}
}

func encodeBody(fields Fields) ([]byte, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch x := v.(type) {
		case time.Time:
			out[k] = x.UTC().Format(TimeLayout)
		case *time.Time:
			if x == nil {
				out[k] = nil
			} else {
				out[k] = x.UTC().Format(TimeLayout)
			}
		default:
			out[k] = v
		}
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return body, nil
}

func decodeBody(body []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var fields Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}
