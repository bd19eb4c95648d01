// Package bolt implements the store.Store interface on a single bbolt file,
// for single-node deployments without PostgreSQL.
package bolt

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

var (
	formsBucket       = []byte("forms")
	submissionsBucket = []byte("submissions")
	uploadsBucket     = []byte("uploads")
	eventsBucket      = []byte("events")
)

// BoltStore implements store.Store backed by a bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

var _ store.Store = (*BoltStore)(nil)

// New opens (or creates) the database file at path and ensures its buckets exist.
func New(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{formsBucket, submissionsBucket, uploadsBucket, eventsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) GetForm(ctx context.Context, ticketType model.TicketType) (*model.Form, error) {
	var f *model.Form
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		f, err = getForm(tx, ticketType)
		return err
	})
	return f, err
}

func (s *BoltStore) ListForms(ctx context.Context) ([]*model.Form, error) {
	var forms []*model.Form
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		forms, err = listForms(tx)
		return err
	})
	return forms, err
}

func (s *BoltStore) SaveForm(ctx context.Context, f *model.Form, expectedVersion int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return saveForm(tx, f, expectedVersion)
	})
}

func (s *BoltStore) DeleteForm(ctx context.Context, ticketType model.TicketType) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return deleteForm(tx, ticketType)
	})
}

func (s *BoltStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return createSubmission(tx, sub)
	})
}

func (s *BoltStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var sub *model.Submission
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		sub, err = getSubmission(tx, id)
		return err
	})
	return sub, err
}

func (s *BoltStore) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	var (
		subs  []*model.Submission
		total int
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		subs, total, err = listSubmissions(tx, filter)
		return err
	})
	return subs, total, err
}

func (s *BoltStore) RecordUpload(ctx context.Context, u *model.Upload) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return recordUpload(tx, u)
	})
}

func (s *BoltStore) GetUpload(ctx context.Context, key string) (*model.Upload, error) {
	var u *model.Upload
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		u, err = getUpload(tx, key)
		return err
	})
	return u, err
}

func (s *BoltStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return recordEvent(tx, event)
	})
}

func (s *BoltStore) GetEvents(ctx context.Context, subject string) ([]*model.Event, error) {
	var evts []*model.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		evts, err = getEvents(tx, subject)
		return err
	})
	return evts, err
}

// RunInTransaction runs fn inside a single read-write bbolt transaction.
// bbolt commits when fn returns nil and rolls back otherwise.
func (s *BoltStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

// txStore implements store.Store on an open read-write transaction.
type txStore struct {
	tx *bolt.Tx
}

var _ store.Store = (*txStore)(nil)

func (s *txStore) GetForm(ctx context.Context, ticketType model.TicketType) (*model.Form, error) {
	return getForm(s.tx, ticketType)
}

func (s *txStore) ListForms(ctx context.Context) ([]*model.Form, error) {
	return listForms(s.tx)
}

func (s *txStore) SaveForm(ctx context.Context, f *model.Form, expectedVersion int) error {
	return saveForm(s.tx, f, expectedVersion)
}

func (s *txStore) DeleteForm(ctx context.Context, ticketType model.TicketType) error {
	return deleteForm(s.tx, ticketType)
}

func (s *txStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	return createSubmission(s.tx, sub)
}

func (s *txStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return getSubmission(s.tx, id)
}

func (s *txStore) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	return listSubmissions(s.tx, filter)
}

func (s *txStore) RecordUpload(ctx context.Context, u *model.Upload) error {
	return recordUpload(s.tx, u)
}

func (s *txStore) GetUpload(ctx context.Context, key string) (*model.Upload, error) {
	return getUpload(s.tx, key)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return recordEvent(s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, subject string) ([]*model.Event, error) {
	return getEvents(s.tx, subject)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store.
func (s *txStore) Close() error {
	return nil
}

func getJSON(tx *bolt.Tx, bucket []byte, key string, dst any) error {
	v := tx.Bucket(bucket).Get([]byte(key))
	if v == nil {
		return sql.ErrNoRows
	}
	return json.Unmarshal(v, dst)
}

func putJSON(tx *bolt.Tx, bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

func getForm(tx *bolt.Tx, ticketType model.TicketType) (*model.Form, error) {
	var f model.Form
	if err := getJSON(tx, formsBucket, string(ticketType), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// listForms returns every form in ticket type order; bbolt iterates keys sorted.
func listForms(tx *bolt.Tx) ([]*model.Form, error) {
	var forms []*model.Form
	err := tx.Bucket(formsBucket).ForEach(func(k, v []byte) error {
		var f model.Form
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("decode form %s: %w", k, err)
		}
		forms = append(forms, &f)
		return nil
	})
	return forms, err
}

func saveForm(tx *bolt.Tx, f *model.Form, expectedVersion int) error {
	now := time.Now().UTC()
	existing, err := getForm(tx, f.TicketType)
	switch {
	case err == sql.ErrNoRows:
		f.Version = 1
		f.CreatedAt = now
	case err != nil:
		return fmt.Errorf("load form: %w", err)
	default:
		if expectedVersion > 0 && existing.Version != expectedVersion {
			return store.ErrVersionConflict
		}
		f.Version = existing.Version + 1
		f.CreatedAt = existing.CreatedAt
	}
	f.UpdatedAt = now
	if f.Fields == nil {
		f.Fields = []model.FormField{}
	}
	if f.Sections == nil {
		f.Sections = []model.FormSection{}
	}
	return putJSON(tx, formsBucket, string(f.TicketType), f)
}

func deleteForm(tx *bolt.Tx, ticketType model.TicketType) error {
	b := tx.Bucket(formsBucket)
	if b.Get([]byte(ticketType)) == nil {
		return sql.ErrNoRows
	}
	return b.Delete([]byte(ticketType))
}

func createSubmission(tx *bolt.Tx, sub *model.Submission) error {
	if sub.Answers == nil {
		sub.Answers = map[string]string{}
	}
	sub.CreatedAt = time.Now().UTC()
	return putJSON(tx, submissionsBucket, sub.ID, sub)
}

func getSubmission(tx *bolt.Tx, id string) (*model.Submission, error) {
	var sub model.Submission
	if err := getJSON(tx, submissionsBucket, id, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func listSubmissions(tx *bolt.Tx, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	var subs []*model.Submission
	err := tx.Bucket(submissionsBucket).ForEach(func(k, v []byte) error {
		var sub model.Submission
		if err := json.Unmarshal(v, &sub); err != nil {
			return fmt.Errorf("decode submission %s: %w", k, err)
		}
		if filter.TicketType != "" && sub.TicketType != filter.TicketType {
			return nil
		}
		if filter.CreatedBy != "" && sub.CreatedBy != filter.CreatedBy {
			return nil
		}
		subs = append(subs, &sub)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortSubmissions(subs, filter.Sort)
	total := len(subs)

	if filter.Offset > 0 {
		if filter.Offset >= len(subs) {
			subs = nil
		} else {
			subs = subs[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(subs) > filter.Limit {
		subs = subs[:filter.Limit]
	}
	return subs, total, nil
}

// sortSubmissions applies the same sort keys the SQL backend accepts.
// Unknown keys fall back to newest first.
func sortSubmissions(subs []*model.Submission, key string) {
	desc := strings.HasPrefix(key, "-")
	col := strings.TrimPrefix(key, "-")

	var less func(a, b *model.Submission) bool
	switch col {
	case "created_at":
		less = func(a, b *model.Submission) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "ticket_type":
		less = func(a, b *model.Submission) bool { return a.TicketType < b.TicketType }
	case "form_version":
		less = func(a, b *model.Submission) bool { return a.FormVersion < b.FormVersion }
	default:
		less = func(a, b *model.Submission) bool { return a.CreatedAt.Before(b.CreatedAt) }
		desc = true
	}

	sort.SliceStable(subs, func(i, j int) bool {
		if desc {
			return less(subs[j], subs[i])
		}
		return less(subs[i], subs[j])
	})
}

func recordUpload(tx *bolt.Tx, u *model.Upload) error {
	var existing model.Upload
	switch err := getJSON(tx, uploadsBucket, u.Key, &existing); err {
	case nil:
		u.CreatedAt = existing.CreatedAt
	case sql.ErrNoRows:
		u.CreatedAt = time.Now().UTC()
	default:
		return err
	}
	return putJSON(tx, uploadsBucket, u.Key, u)
}

func getUpload(tx *bolt.Tx, key string) (*model.Upload, error) {
	var u model.Upload
	if err := getJSON(tx, uploadsBucket, key, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func recordEvent(tx *bolt.Tx, e *model.Event) error {
	b := tx.Bucket(eventsBucket)
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("next event id: %w", err)
	}
	e.ID = int64(seq)
	e.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.Put(itob(seq), data)
}

// getEvents scans the event log in id order, which is also creation order.
func getEvents(tx *bolt.Tx, subject string) ([]*model.Event, error) {
	var evts []*model.Event
	err := tx.Bucket(eventsBucket).ForEach(func(k, v []byte) error {
		var e model.Event
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if e.Subject == subject {
			evts = append(evts, &e)
		}
		return nil
	})
	return evts, err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
