package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-contact-scraper/pkg/models"
)

const (
	upsertContact = `
		INSERT INTO contacts (session_id, dedup_key, name, phone, normalized_phone, about, role, dm_link, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, dedup_key) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			normalized_phone = EXCLUDED.normalized_phone,
			about = EXCLUDED.about,
			role = EXCLUDED.role,
			dm_link = EXCLUDED.dm_link,
			updated_at = EXCLUDED.updated_at`

	deleteContact = `DELETE FROM contacts WHERE session_id = $1 AND dedup_key = $2`

	sessionKeys = `SELECT dedup_key FROM contacts WHERE session_id = $1`
)

// Change is one streamed mutation: an upsert of Record, or, when Removed is
// set, the deletion of the row keyed by Record.Key.
type Change struct {
	Record  models.ContactRecord
	Removed bool
}

// ContactSink writes records of one session. Rows are keyed by session and
// dedup key, so saving a record again overwrites it with its merged state.
type ContactSink struct {
	*Storage
	SessionID uuid.UUID
	Log       *zap.Logger
	Now       func() time.Time
}

func NewContactSink(s *Storage, session uuid.UUID, log *zap.Logger) *ContactSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactSink{Storage: s, SessionID: session, Log: log, Now: time.Now}
}

// Save applies a batch of streamed changes in order, in one transaction.
func (s *ContactSink) Save(batch []Change) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Consecutive changes of the same kind share a prepared statement.
	for start := 0; start < len(batch); {
		end := start
		for end < len(batch) && batch[end].Removed == batch[start].Removed {
			end++
		}

		run := batch[start:end]
		if run[0].Removed {
			keys := make([]string, len(run))
			for i, c := range run {
				keys[i] = c.Record.Key
			}
			err = s.delete(tx, keys)
		} else {
			records := make([]models.ContactRecord, len(run))
			for i, c := range run {
				records[i] = c.Record
			}
			err = s.upsert(tx, records)
		}
		if err != nil {
			return err
		}
		start = end
	}
	return tx.Commit()
}

// Sync makes the session's rows equal to records: every record is upserted
// and rows whose key is not among them are deleted.
func (s *ContactSink) Sync(records []models.ContactRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.upsert(tx, records); err != nil {
		return err
	}

	keep := make(map[string]bool, len(records))
	for _, r := range records {
		keep[r.Key] = true
	}

	rows, err := tx.Query(sessionKeys, s.SessionID.String())
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return err
		}
		if !keep[key] {
			stale = append(stale, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if err := s.delete(tx, stale); err != nil {
		return err
	}
	if len(stale) > 0 {
		s.Log.Info("Pruned folded contacts", zap.Int("count", len(stale)))
	}
	return tx.Commit()
}

func (s *ContactSink) upsert(tx *sql.Tx, records []models.ContactRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(upsertContact)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.Now()
	for _, r := range records {
		_, err := stmt.Exec(
			s.SessionID.String(),
			r.Key,
			r.Name,
			r.Phone,
			r.NormalizedPhone,
			r.About,
			r.Role.String(),
			r.DMLink,
			now,
		)
		if err != nil {
			s.Log.Warn("Saving contact failed", zap.String("key", r.Key), zap.Error(err))
		}
	}
	return nil
}

func (s *ContactSink) delete(tx *sql.Tx, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(deleteContact)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err := stmt.Exec(s.SessionID.String(), key); err != nil {
			s.Log.Warn("Deleting contact failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
