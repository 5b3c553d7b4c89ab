package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/service"

	"github.com/shopspring/decimal"
)

// SaveSession persists a full session record: its row, its account pool,
// and its entries, atomically. Saving an existing ID replaces the stored
// session.
func (s *SQLiteStorage) SaveSession(ctx context.Context, record *model.SessionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSessionRecord(record); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Will be no-op if already committed
	}()

	if err := saveSession(ctx, tx, record); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("Saved mapping session",
		"session_id", record.ID,
		"accounts", len(record.Accounts),
		"entries", len(record.Entries))

	return nil
}

// GetSession retrieves a session record by ID.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*model.SessionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getSession(ctx, s.db, id)
}

// GetLatestSession retrieves the most recently created session.
func (s *SQLiteStorage) GetLatestSession(ctx context.Context) (*model.SessionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getLatestSession(ctx, s.db)
}

// ListSessions returns summaries of stored sessions, newest first.
func (s *SQLiteStorage) ListSessions(ctx context.Context, filter service.SessionFilter) ([]model.SessionSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listSessions(ctx, s.db, filter)
}

// UpdateSessionEntry replaces one entry at the given position and bumps the
// session's updated_at.
func (s *SQLiteStorage) UpdateSessionEntry(ctx context.Context, sessionID string, index int, entry model.MappingEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	return updateSessionEntry(ctx, s.db, sessionID, index, entry)
}

// MarkSessionAccepted records when the session's mapping was accepted.
func (s *SQLiteStorage) MarkSessionAccepted(ctx context.Context, sessionID string, acceptedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	return markSessionAccepted(ctx, s.db, sessionID, acceptedAt)
}

// DeleteSession removes a session and its dependent rows.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deleteSession(ctx, s.db, id)
}

// Shared helpers, usable on the connection or inside a transaction.

func saveSession(ctx context.Context, q dbtx, record *model.SessionRecord) error {
	// Replace semantics: clear any previous copy of this session first.
	// Dependent rows go through ON DELETE CASCADE.
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, record.ID); err != nil {
		return fmt.Errorf("failed to clear existing session: %w", err)
	}

	var acceptedAt sql.NullString
	if record.AcceptedAt != nil {
		acceptedAt = sql.NullString{String: record.AcceptedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at, accepted_at) VALUES (?, ?, ?, ?)`,
		record.ID,
		record.CreatedAt.UTC().Format(time.RFC3339),
		updatedAt.UTC().Format(time.RFC3339),
		acceptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for i := range record.Accounts {
		account := &record.Accounts[i]
		_, err := q.ExecContext(ctx,
			`INSERT INTO session_accounts (session_id, position, raw, normalized, category, value)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID, i, account.Raw, account.Normalized, string(account.Category), account.Value.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save account %d: %w", i, err)
		}
	}

	for i := range record.Entries {
		if err := insertEntry(ctx, q, record.ID, i, &record.Entries[i]); err != nil {
			return err
		}
	}

	return nil
}

func insertEntry(ctx context.Context, q dbtx, sessionID string, position int, entry *model.MappingEntry) error {
	var accountRaw, accountNormalized, accountCategory, accountValue sql.NullString
	if entry.Account != nil {
		accountRaw = sql.NullString{String: entry.Account.Raw, Valid: true}
		accountNormalized = sql.NullString{String: entry.Account.Normalized, Valid: true}
		accountCategory = sql.NullString{String: string(entry.Account.Category), Valid: true}
		accountValue = sql.NullString{String: entry.Account.Value.String(), Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO session_entries (
			session_id, position,
			label_raw, label_normalized, label_category,
			account_raw, account_normalized, account_category, account_value,
			value, confidence, method, reasoning
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, position,
		entry.Label.Raw, entry.Label.Normalized, string(entry.Label.Category),
		accountRaw, accountNormalized, accountCategory, accountValue,
		entry.Value.String(), entry.Confidence, string(entry.Method), entry.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry %d: %w", position, err)
	}
	return nil
}

func getSession(ctx context.Context, q dbtx, id string) (*model.SessionRecord, error) {
	var (
		createdAtStr, updatedAtStr string
		acceptedAtStr              sql.NullString
	)

	row := q.QueryRowContext(ctx,
		`SELECT created_at, updated_at, accepted_at FROM sessions WHERE id = ?`, id)
	err := row.Scan(&createdAtStr, &updatedAtStr, &acceptedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	record := &model.SessionRecord{ID: id}
	record.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	record.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if acceptedAtStr.Valid {
		t, parseErr := time.Parse(time.RFC3339, acceptedAtStr.String)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse accepted_at: %w", parseErr)
		}
		record.AcceptedAt = &t
	}

	record.Accounts, err = loadAccounts(ctx, q, id)
	if err != nil {
		return nil, err
	}
	record.Entries, err = loadEntries(ctx, q, id)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func getLatestSession(ctx context.Context, q dbtx) (*model.SessionRecord, error) {
	var id string
	row := q.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY created_at DESC, id DESC LIMIT 1`)
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no sessions stored: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest session: %w", err)
	}
	return getSession(ctx, q, id)
}

func listSessions(ctx context.Context, q dbtx, filter service.SessionFilter) ([]model.SessionSummary, error) {
	query := `
		SELECT
			s.id, s.created_at, s.accepted_at,
			COUNT(e.position),
			COALESCE(SUM(CASE WHEN e.account_raw IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN session_entries e ON e.session_id = s.id
	`
	var args []any
	if filter.Since != nil {
		query += ` WHERE s.created_at >= ?`
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}
	query += ` GROUP BY s.id ORDER BY s.created_at DESC, s.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var summaries []model.SessionSummary
	for rows.Next() {
		var (
			summary       model.SessionSummary
			createdAtStr  string
			acceptedAtStr sql.NullString
		)
		if err := rows.Scan(&summary.ID, &createdAtStr, &acceptedAtStr, &summary.Total, &summary.Mapped); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		summary.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if acceptedAtStr.Valid {
			t, parseErr := time.Parse(time.RFC3339, acceptedAtStr.String)
			if parseErr != nil {
				return nil, fmt.Errorf("failed to parse accepted_at: %w", parseErr)
			}
			summary.AcceptedAt = &t
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

func updateSessionEntry(ctx context.Context, q dbtx, sessionID string, index int, entry model.MappingEntry) error {
	var accountRaw, accountNormalized, accountCategory, accountValue sql.NullString
	if entry.Account != nil {
		accountRaw = sql.NullString{String: entry.Account.Raw, Valid: true}
		accountNormalized = sql.NullString{String: entry.Account.Normalized, Valid: true}
		accountCategory = sql.NullString{String: string(entry.Account.Category), Valid: true}
		accountValue = sql.NullString{String: entry.Account.Value.String(), Valid: true}
	}

	result, err := q.ExecContext(ctx,
		`UPDATE session_entries SET
			label_raw = ?, label_normalized = ?, label_category = ?,
			account_raw = ?, account_normalized = ?, account_category = ?, account_value = ?,
			value = ?, confidence = ?, method = ?, reasoning = ?
		WHERE session_id = ? AND position = ?`,
		entry.Label.Raw, entry.Label.Normalized, string(entry.Label.Category),
		accountRaw, accountNormalized, accountCategory, accountValue,
		entry.Value.String(), entry.Confidence, string(entry.Method), entry.Reasoning,
		sessionID, index,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s entry %d: %w", sessionID, index, common.ErrNotFound)
	}

	_, err = q.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func markSessionAccepted(ctx context.Context, q dbtx, sessionID string, acceptedAt time.Time) error {
	stamp := acceptedAt.UTC().Format(time.RFC3339)
	result, err := q.ExecContext(ctx,
		`UPDATE sessions SET accepted_at = ?, updated_at = ? WHERE id = ?`,
		stamp, stamp, sessionID)
	if err != nil {
		return fmt.Errorf("failed to mark session accepted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, common.ErrNotFound)
	}
	return nil
}

func deleteSession(ctx context.Context, q dbtx, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func loadAccounts(ctx context.Context, q dbtx, sessionID string) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT raw, normalized, category, value FROM session_accounts
		 WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var accounts []model.Account
	for rows.Next() {
		var (
			account  model.Account
			category string
			valueStr string
		)
		if err := rows.Scan(&account.Raw, &account.Normalized, &category, &valueStr); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.Category = model.Category(category)
		account.Value, err = decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse account value %q: %w", valueStr, err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func loadEntries(ctx context.Context, q dbtx, sessionID string) ([]model.MappingEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT
			label_raw, label_normalized, label_category,
			account_raw, account_normalized, account_category, account_value,
			value, confidence, method, reasoning
		 FROM session_entries
		 WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []model.MappingEntry
	for rows.Next() {
		var (
			entry                                                        model.MappingEntry
			labelCategory, valueStr, method                              string
			accountRaw, accountNormalized, accountCategory, accountValue sql.NullString
			reasoning                                                    sql.NullString
		)
		err := rows.Scan(
			&entry.Label.Raw, &entry.Label.Normalized, &labelCategory,
			&accountRaw, &accountNormalized, &accountCategory, &accountValue,
			&valueStr, &entry.Confidence, &method, &reasoning,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		entry.Label.Category = model.Category(labelCategory)
		entry.Method = model.MappingMethod(method)
		entry.Reasoning = reasoning.String
		entry.Value, err = decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse entry value %q: %w", valueStr, err)
		}

		if accountRaw.Valid {
			account := model.Account{
				Raw:        accountRaw.String,
				Normalized: accountNormalized.String,
				Category:   model.Category(accountCategory.String),
			}
			account.Value, err = decimal.NewFromString(accountValue.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse stored account value %q: %w", accountValue.String, err)
			}
			entry.Account = &account
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
