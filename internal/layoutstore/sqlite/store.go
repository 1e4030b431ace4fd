package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/keyshell/internal/layoutstore"
	"github.com/1broseidon/keyshell/internal/layoutstore/sqlite/migrations"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type LayoutStore struct {
	db *sql.DB
}

func NewLayoutStore(filename string, log *zap.SugaredLogger) (*LayoutStore, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite3", "file:"+filename+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrations.Migrate(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &LayoutStore{db: db}, nil
}

func (s *LayoutStore) Close() error {
	return s.db.Close()
}

func (s *LayoutStore) Save(ctx context.Context, layout layoutstore.Layout) error {
	name, err := layoutstore.NormalizeName(layout.Name)
	if err != nil {
		return err
	}
	savedAt := layout.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `delete from layouts where name = ?`, name); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`insert into layouts (name, saved_at) values (?, ?)`,
		name, savedAt.UnixNano()); err != nil {
		return fmt.Errorf("sqlite insert layout: %w", err)
	}
	for i, w := range layout.Windows {
		if _, err := tx.ExecContext(ctx,
			`insert into layout_windows (layout, position, class, title, x, y, width, height)
			 values (?, ?, ?, ?, ?, ?, ?, ?)`,
			name, i, w.Class, w.Title, w.X, w.Y, w.Width, w.Height); err != nil {
			return fmt.Errorf("sqlite insert window: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

func (s *LayoutStore) Load(ctx context.Context, name string) (layoutstore.Layout, error) {
	var savedAt int64
	err := s.db.QueryRowContext(ctx, `select saved_at from layouts where name = ?`, name).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return layoutstore.Layout{}, fmt.Errorf("load %q: %w", name, layoutstore.ErrNotFound)
	}
	if err != nil {
		return layoutstore.Layout{}, fmt.Errorf("sqlite select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`select class, title, x, y, width, height from layout_windows
		 where layout = ? order by position`, name)
	if err != nil {
		return layoutstore.Layout{}, fmt.Errorf("sqlite select windows: %w", err)
	}
	defer rows.Close()

	layout := layoutstore.Layout{Name: name, SavedAt: time.Unix(0, savedAt)}
	for rows.Next() {
		var w layoutstore.Window
		if err := rows.Scan(&w.Class, &w.Title, &w.X, &w.Y, &w.Width, &w.Height); err != nil {
			return layoutstore.Layout{}, fmt.Errorf("sqlite scan: %w", err)
		}
		layout.Windows = append(layout.Windows, w)
	}
	if err := rows.Err(); err != nil {
		return layoutstore.Layout{}, fmt.Errorf("sqlite rows: %w", err)
	}
	return layout, nil
}

func (s *LayoutStore) List(ctx context.Context) ([]layoutstore.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`select l.name, l.saved_at, count(w.position)
		 from layouts l left join layout_windows w on w.layout = l.name
		 group by l.name order by l.name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite select: %w", err)
	}
	defer rows.Close()

	var out []layoutstore.Summary
	for rows.Next() {
		var (
			sum     layoutstore.Summary
			savedAt int64
		)
		if err := rows.Scan(&sum.Name, &savedAt, &sum.Windows); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		sum.SavedAt = time.Unix(0, savedAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite rows: %w", err)
	}
	return out, nil
}

func (s *LayoutStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `delete from layouts where name = ?`, name)
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %q: %w", name, layoutstore.ErrNotFound)
	}
	return nil
}
