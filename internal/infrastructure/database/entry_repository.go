package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// EntryRepository 定义条目存储库接口
type EntryRepository interface {
	// ExistingLinks 读取当前已存储的全部链接
	ExistingLinks(ctx context.Context) (map[string]struct{}, error)
	// InsertEntries 在一个事务中批量追加条目，返回实际插入的数量
	// 违反link唯一约束的条目被忽略，不视为错误
	InsertEntries(ctx context.Context, entries []model.Entry) (int, error)
	// GetEntryByLink 根据链接获取条目
	GetEntryByLink(ctx context.Context, link string) (*model.Entry, error)
	// CountEntries 返回条目总数
	CountEntries(ctx context.Context) (int, error)
}

// SQLiteEntryRepository 实现EntryRepository接口的SQLite存储库
type SQLiteEntryRepository struct {
	db Database
}

// NewSQLiteEntryRepository 创建一个新的SQLite条目存储库
func NewSQLiteEntryRepository(db Database) *SQLiteEntryRepository {
	return &SQLiteEntryRepository{
		db: db,
	}
}

// ExistingLinks 读取全部已存储的链接
func (r *SQLiteEntryRepository) ExistingLinks(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT link FROM entries")
	if err != nil {
		return nil, fmt.Errorf("查询已存在链接失败: %w", err)
	}
	defer rows.Close()

	links := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("读取链接失败: %w", err)
		}
		links[link] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历链接失败: %w", err)
	}

	logger.Debug("已读取存储中的链接", "links_count", len(links))
	return links, nil
}

// InsertEntries 批量插入条目
func (r *SQLiteEntryRepository) InsertEntries(ctx context.Context, entries []model.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO entries (feed_id, title, link, published, author, entry_id, summary)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("准备插入语句失败: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		var published sql.NullTime
		if e.Published != nil {
			published = sql.NullTime{Time: e.Published.UTC(), Valid: true}
		}

		res, err := stmt.ExecContext(ctx, e.FeedID, e.Title, e.Link, published, e.Author, e.EntryID, e.Summary)
		if err != nil {
			return 0, fmt.Errorf("插入条目失败: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("获取影响行数失败: %w", err)
		}
		if n == 0 {
			logger.Debug("条目违反唯一约束，按重复处理", "link", e.Link)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("提交事务失败: %w", err)
	}
	return inserted, nil
}

// GetEntryByLink 根据链接获取条目，不存在时返回nil
func (r *SQLiteEntryRepository) GetEntryByLink(ctx context.Context, link string) (*model.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT feed_id, title, link, published, author, entry_id, summary
	FROM entries WHERE link = ?
	`, link)

	var (
		entry     model.Entry
		published sql.NullTime
	)
	err := row.Scan(&entry.FeedID, &entry.Title, &entry.Link, &published, &entry.Author, &entry.EntryID, &entry.Summary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("获取条目失败: %w", err)
	}
	if published.Valid {
		t := published.Time.UTC()
		entry.Published = &t
	}
	return &entry, nil
}

// CountEntries 返回条目总数
func (r *SQLiteEntryRepository) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("统计条目失败: %w", err)
	}
	return count, nil
}
