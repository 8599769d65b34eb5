package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
)

// UpsertFile replaces every snippet of file with snippets and records the
// parse time, all in one transaction. On any failure nothing changes.
func (s *SnippetStore) UpsertFile(ctx context.Context, file string, snippets []Snippet) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return storageErr("upsert", file, ErrClosed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("upsert", file, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := sq.Delete("code_snippets").
		Where(sq.Eq{"file_path": file}).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return storageErr("upsert", file, fmt.Errorf("failed to delete old snippets: %w", err))
	}

	now := s.now()
	for _, sn := range snippets {
		_, err := sq.Insert("code_snippets").
			Columns(
				"file_path", "dir_path", "name", "type", "description", "code",
				"line_start", "line_end", "char_count", "tags", "updated_at",
			).
			Values(
				file,
				sn.DirPath,
				sn.Name,
				string(sn.Type),
				sn.Description,
				sn.Code,
				sn.LineStart,
				sn.LineEnd,
				sn.CharCount,
				joinTags(sn.Tags),
				now.UTC().Format(timestampLayout),
			).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return storageErr("upsert", file, fmt.Errorf("failed to insert snippet %s: %w", sn.Name, err))
		}
	}

	if err := touchFile(ctx, tx, file, epochSeconds(now)); err != nil {
		return storageErr("upsert", file, err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("upsert", file, fmt.Errorf("failed to commit: %w", err))
	}

	s.logger.Debug("stored snippets", "path", file, "count", len(snippets))
	return nil
}

func touchFile(ctx context.Context, tx *sql.Tx, file string, parsed float64) error {
	_, err := sq.Insert("code_files").
		Columns("file_path", "last_parsed_time").
		Values(file, parsed).
		Options("OR REPLACE").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update parse time: %w", err)
	}
	return nil
}

// DeleteFile removes a file's snippets and timestamp.
func (s *SnippetStore) DeleteFile(ctx context.Context, file string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return storageErr("delete", file, ErrClosed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("delete", file, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback() // Safe to call even after commit

	if err := deleteFiles(ctx, tx, []string{file}); err != nil {
		return storageErr("delete", file, err)
	}
	return storageErr("delete", file, tx.Commit())
}

// Prune removes every tracked file not listed in keep and returns the
// removed paths, sorted.
func (s *SnippetStore) Prune(ctx context.Context, keep []string) ([]string, error) {
	tracked, err := s.TrackedFiles(ctx)
	if err != nil {
		return nil, err
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		keepSet[k] = struct{}{}
	}
	var stale []string
	for _, f := range tracked {
		if _, ok := keepSet[f]; !ok {
			stale = append(stale, f)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil, storageErr("prune", "", ErrClosed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("prune", "", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback() // Safe to call even after commit

	if err := deleteFiles(ctx, tx, stale); err != nil {
		return nil, storageErr("prune", "", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("prune", "", fmt.Errorf("failed to commit: %w", err))
	}

	sort.Strings(stale)
	s.logger.Info("pruned files", "count", len(stale))
	return stale, nil
}

func deleteFiles(ctx context.Context, tx *sql.Tx, files []string) error {
	for _, table := range []string{"code_snippets", "code_files"} {
		if _, err := sq.Delete(table).
			Where(sq.Eq{"file_path": files}).
			RunWith(tx).
			ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}
