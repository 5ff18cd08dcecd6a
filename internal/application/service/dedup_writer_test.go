package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/database"
)

// memoryStore 内存中的EntryStore，用于模拟存储行为
type memoryStore struct {
	links     map[string]struct{}
	inserted  [][]model.Entry
	readErr   error
	writeErr  error
	conflicts map[string]struct{} // 读取后由其它写入者插入的链接
}

func newMemoryStore(existing ...string) *memoryStore {
	s := &memoryStore{links: make(map[string]struct{}), conflicts: make(map[string]struct{})}
	for _, l := range existing {
		s.links[l] = struct{}{}
	}
	return s
}

func (s *memoryStore) ExistingLinks(ctx context.Context) (map[string]struct{}, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make(map[string]struct{}, len(s.links))
	for l := range s.links {
		out[l] = struct{}{}
	}
	return out, nil
}

func (s *memoryStore) InsertEntries(ctx context.Context, entries []model.Entry) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.inserted = append(s.inserted, entries)
	n := 0
	for _, e := range entries {
		if _, ok := s.conflicts[e.Link]; ok {
			continue
		}
		if _, ok := s.links[e.Link]; ok {
			continue
		}
		s.links[e.Link] = struct{}{}
		n++
	}
	return n, nil
}

func entry(feedID int, link, title string) model.Entry {
	return model.Entry{FeedID: feedID, Link: link, Title: title}
}

func TestCollapseByLinkKeepsLast(t *testing.T) {
	batch := []model.Entry{
		entry(1, "x", "x1"),
		entry(1, "y", "y-from-A"),
		entry(1, "z", "z1"),
		entry(2, "y", "y-from-B"),
		entry(2, "w", "w2"),
	}

	collapsed := CollapseByLink(batch)
	require.Len(t, collapsed, 4)

	var titles []string
	for _, e := range collapsed {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"x1", "z1", "y-from-B", "w2"}, titles)
}

func TestPersistSkipsExisting(t *testing.T) {
	store := newMemoryStore("a", "c")
	writer := NewDedupWriter(store)

	report, err := writer.Persist(context.Background(), []model.Entry{
		entry(1, "a", ""), entry(1, "b", ""), entry(1, "c", ""), entry(1, "d", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, model.WriteReport{Saved: 2, Skipped: 2}, report)
	require.Len(t, store.inserted, 1)
	assert.Len(t, store.inserted[0], 2, "only new links are handed to the store")
}

func TestPersistInBatchDuplicatesAreNotSkipped(t *testing.T) {
	store := newMemoryStore()
	writer := NewDedupWriter(store)

	report, err := writer.Persist(context.Background(), []model.Entry{
		entry(1, "x", ""), entry(1, "y", ""), entry(1, "z", ""), entry(2, "y", ""), entry(2, "w", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, model.WriteReport{Saved: 4, Skipped: 0}, report)
}

func TestPersistConstraintConflictCountsAsSkipped(t *testing.T) {
	store := newMemoryStore()
	store.conflicts["b"] = struct{}{}
	writer := NewDedupWriter(store)

	report, err := writer.Persist(context.Background(), []model.Entry{entry(1, "a", ""), entry(1, "b", "")})
	require.NoError(t, err)
	assert.Equal(t, model.WriteReport{Saved: 1, Skipped: 1}, report)
}

func TestPersistEmptyBatch(t *testing.T) {
	store := newMemoryStore()
	store.readErr = errors.New("should not be read")

	report, err := NewDedupWriter(store).Persist(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.WriteReport{}, report)
}

func TestPersistStorageErrors(t *testing.T) {
	readFail := newMemoryStore()
	readFail.readErr = errors.New("disk gone")
	_, err := NewDedupWriter(readFail).Persist(context.Background(), []model.Entry{entry(1, "a", "")})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	writeFail := newMemoryStore()
	writeFail.writeErr = errors.New("database is locked")
	_, err = NewDedupWriter(writeFail).Persist(context.Background(), []model.Entry{entry(1, "a", "")})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestPersistAllExistingSkipsInsert(t *testing.T) {
	store := newMemoryStore("a", "b")

	report, err := NewDedupWriter(store).Persist(context.Background(), []model.Entry{entry(1, "a", ""), entry(1, "b", "")})
	require.NoError(t, err)
	assert.Equal(t, model.WriteReport{Saved: 0, Skipped: 2}, report)
	assert.Empty(t, store.inserted)
}

func TestPersistSQLite(t *testing.T) {
	ctx := context.Background()
	db := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, db.Init())
	defer db.Close()

	repo := database.NewSQLiteEntryRepository(db)
	writer := NewDedupWriter(repo)

	report, err := writer.Persist(ctx, []model.Entry{entry(1, "https://e.com/1", "one"), entry(1, "https://e.com/2", "two")})
	require.NoError(t, err)
	assert.Equal(t, model.WriteReport{Saved: 2, Skipped: 0}, report)

	report, err = writer.Persist(ctx, []model.Entry{entry(2, "https://e.com/2", "dup"), entry(2, "https://e.com/3", "three")})
	require.NoError(t, err)
	assert.Equal(t, model.WriteReport{Saved: 1, Skipped: 1}, report)

	got, err := repo.GetEntryByLink(ctx, "https://e.com/2")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Title)

	count, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
