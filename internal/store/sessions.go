package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pistalab/trainlog/internal/models"
)

// SessionSummary is one row of a session listing.
type SessionSummary struct {
	ID    int64  `json:"id"`
	Date  string `json:"date"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// ImportRecord summarizes one ingestion run for the import log.
type ImportRecord struct {
	ID               string
	CreatedAt        time.Time
	Source           string
	SessionsInserted int
	PersonalBests    int
	Injuries         int
	ErrorMessage     string
}

// SaveSessions inserts drafts with their groups and sets in one transaction
// and returns the new session IDs, in input order. importID ties the rows to
// an import-log entry and may be empty.
func (s *Store) SaveSessions(ctx context.Context, drafts []models.SessionDraft, importID string) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(drafts))
	for _, draft := range drafts {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (import_id, date, title, type, location, rpe, feeling, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			nullString(importID), draft.Session.Date, draft.Session.Title, draft.Session.Type,
			nullString(draft.Session.Location), rpeValue(draft.Session.RPE),
			nullString(draft.Session.Feeling), nullString(draft.Session.Notes))
		if err != nil {
			return nil, fmt.Errorf("inserting session %s: %w", draft.Session.Date, err)
		}
		sessionID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading session id: %w", err)
		}

		for _, group := range draft.Groups {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO session_groups (session_id, name, order_index, notes) VALUES (?, ?, ?, ?)`,
				sessionID, group.Name, group.OrderIndex, nullString(group.Notes))
			if err != nil {
				return nil, fmt.Errorf("inserting group %q: %w", group.Name, err)
			}
			groupID, err := res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("reading group id: %w", err)
			}

			for _, set := range group.Sets {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO group_sets (group_id, exercise_name, category, sets, reps,
					 weight_kg, distance_m, time_s, recovery_s, notes, details)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					groupID, set.ExerciseName, nullString(set.Category), set.Sets, set.Reps,
					set.WeightKg, set.DistanceM, set.TimeS, set.RecoveryS,
					nullString(set.Notes), nullString(set.Details))
				if err != nil {
					return nil, fmt.Errorf("inserting set %q: %w", set.ExerciseName, err)
				}
			}
		}
		ids = append(ids, sessionID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	return ids, nil
}

// ListSessions returns session summaries ordered by date descending.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, title, type FROM sessions ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Date, &sum.Title, &sum.Type); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetSession loads one session with its groups and sets.
func (s *Store) GetSession(ctx context.Context, id int64) (*models.SessionDraft, error) {
	var draft models.SessionDraft
	var location, feeling, notes sql.NullString
	var rpe sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT date, title, type, location, rpe, feeling, notes FROM sessions WHERE id = ?`, id).
		Scan(&draft.Session.Date, &draft.Session.Title, &draft.Session.Type, &location, &rpe, &feeling, &notes)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", id, err)
	}
	draft.Session.Location = location.String
	draft.Session.Feeling = feeling.String
	draft.Session.Notes = notes.String
	if rpe.Valid {
		draft.Session.RPE = models.Flex(strconv.FormatInt(rpe.Int64, 10))
	}

	groupRows, err := s.db.QueryContext(ctx,
		`SELECT id, name, order_index, notes FROM session_groups WHERE session_id = ? ORDER BY order_index, id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading groups for session %d: %w", id, err)
	}
	defer groupRows.Close()

	var groupIDs []int64
	for groupRows.Next() {
		var gid int64
		var g models.GroupDraft
		var gNotes sql.NullString
		if err := groupRows.Scan(&gid, &g.Name, &g.OrderIndex, &gNotes); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		g.Notes = gNotes.String
		draft.Groups = append(draft.Groups, g)
		groupIDs = append(groupIDs, gid)
	}
	if err := groupRows.Err(); err != nil {
		return nil, err
	}

	for i, gid := range groupIDs {
		sets, err := s.loadSets(ctx, gid)
		if err != nil {
			return nil, err
		}
		draft.Groups[i].Sets = sets
	}
	return &draft, nil
}

func (s *Store) loadSets(ctx context.Context, groupID int64) ([]models.SetDraft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_name, category, sets, reps, weight_kg, distance_m, time_s, recovery_s, notes, details
		 FROM group_sets WHERE group_id = ? ORDER BY id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading sets for group %d: %w", groupID, err)
	}
	defer rows.Close()

	var out []models.SetDraft
	for rows.Next() {
		var set models.SetDraft
		var category, notes, details sql.NullString
		var weight, distance, timeS sql.NullFloat64
		var recovery sql.NullInt64
		if err := rows.Scan(&set.ExerciseName, &category, &set.Sets, &set.Reps,
			&weight, &distance, &timeS, &recovery, &notes, &details); err != nil {
			return nil, fmt.Errorf("scanning set row: %w", err)
		}
		set.Category = category.String
		set.Notes = notes.String
		set.Details = details.String
		if weight.Valid {
			v := weight.Float64
			set.WeightKg = &v
		}
		if distance.Valid {
			v := distance.Float64
			set.DistanceM = &v
		}
		if timeS.Valid {
			v := timeS.Float64
			set.TimeS = &v
		}
		if recovery.Valid {
			v := int(recovery.Int64)
			set.RecoveryS = &v
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

// DeleteSession removes a session; groups and sets go with it via cascade.
func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordImport writes one import-log entry and returns its generated ID.
func (s *Store) RecordImport(ctx context.Context, rec ImportRecord) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_log (id, source, sessions_inserted, personal_bests, injuries, error_message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Source, rec.SessionsInserted, rec.PersonalBests, rec.Injuries, nullString(rec.ErrorMessage))
	if err != nil {
		return "", fmt.Errorf("recording import: %w", err)
	}
	return id, nil
}

// ListImports returns recent import-log entries, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, sessions_inserted, personal_bests, injuries, COALESCE(error_message, '')
		 FROM import_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		var created string
		if err := rows.Scan(&rec.ID, &created, &rec.Source, &rec.SessionsInserted,
			&rec.PersonalBests, &rec.Injuries, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning import row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func rpeValue(f models.Flex) sql.NullInt64 {
	if v, ok := f.Int(); ok {
		return sql.NullInt64{Int64: int64(v), Valid: true}
	}
	return sql.NullInt64{}
}
