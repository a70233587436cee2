package handlers

import (
	"context"
	"errors"

	"github.com/papeesearch/portal/internal/feed"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// referenceAttempts bounds retries when a generated reference collides.
const referenceAttempts = 3

// Publisher announces new submissions on the live feed.
type Publisher interface {
	Publish(ev *feed.Event)
}

// createWithReference stamps a fresh reference and inserts the record,
// drawing a new reference when the store reports a collision.
func createWithReference(prefix string, setRef func(string), create func() error) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		setRef(models.NewReference(prefix))
		if err = create(); !errors.Is(err, store.ErrDuplicate) {
			return err
		}
	}
	return err
}

// StatusRequest is the body of PATCH on a submission. Only status and notes
// are editable; values are stored verbatim.
type StatusRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// publicJournal loads a journal that accepts public submissions.
func publicJournal(ctx context.Context, st store.Store, id int64) (*models.Journal, error) {
	j, err := st.Journals().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !publiclyVisible(j.Status) {
		return nil, store.ErrNotFound
	}
	return j, nil
}

// publicConference loads a conference that accepts public submissions.
func publicConference(ctx context.Context, st store.Store, id int64) (*models.Conference, error) {
	c, err := st.Conferences().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !publiclyVisible(c.Status) {
		return nil, store.ErrNotFound
	}
	return c, nil
}
