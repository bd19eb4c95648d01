package sync

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

// mockStore is a minimal in-memory store for sync tests. Methods the
// package never calls are left to the embedded nil interface.
type mockStore struct {
	store.Store
	forms   map[model.TicketType]*model.Form
	failOn  model.TicketType
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{forms: make(map[model.TicketType]*model.Form)}
}

func (m *mockStore) ListForms(_ context.Context) ([]*model.Form, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.Form
	for _, f := range m.forms {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockStore) SaveForm(_ context.Context, f *model.Form, _ int) error {
	if f.TicketType == m.failOn {
		return errors.New("save failed")
	}
	f.Version++
	m.forms[f.TicketType] = f
	return nil
}

// RunInTransaction stages writes on a copy and commits them only if fn succeeds.
func (m *mockStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	staged := &mockStore{forms: make(map[model.TicketType]*model.Form), failOn: m.failOn}
	for k, v := range m.forms {
		staged.forms[k] = v
	}
	if err := fn(staged); err != nil {
		return err
	}
	m.forms = staged.forms
	return nil
}
