// Package sequencer owns write access to the label store: it signs
// drafts, serializes appends, and hands each newly stored label to the
// broadcaster in the same critical section as its id assignment.
package sequencer

import (
	"context"
	"sync"

	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"

	"github.com/teranos/labelmaker/errors"
	"github.com/teranos/labelmaker/label"
	"github.com/teranos/labelmaker/store"
)

// Publisher receives newly stored labels in id order, immediately after
// they become durable. Called from within the sequencer's write lock, so
// implementations must not block on slow I/O.
type Publisher interface {
	Publish(stored label.Stored)
}

// Sequencer serializes label writes: it assigns ids via the store and
// publishes to the broadcaster as a single atomic step.
type Sequencer struct {
	store    store.Store
	priv     *indigocrypto.PrivateKeyK256
	labelerDID string
	publisher  Publisher

	mu sync.Mutex
}

// New creates a Sequencer. labelerDID is used to default Src on drafts
// that omit it; priv signs every label before it is appended.
func New(st store.Store, priv *indigocrypto.PrivateKeyK256, labelerDID string, publisher Publisher) *Sequencer {
	return &Sequencer{store: st, priv: priv, labelerDID: labelerDID, publisher: publisher}
}

// CreateLabel signs and appends a single label, defaulting Src and Cts
// when the draft omits them.
func (s *Sequencer) CreateLabel(ctx context.Context, draft label.Draft) (label.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLabelLocked(ctx, draft)
}

// CreateLabels implements the batch form: it iterates create producing
// non-negating labels, then negate producing negating labels, preserving
// input order, inserting each under a single write lock so the whole
// batch is observed in one contiguous id range.
func (s *Sequencer) CreateLabels(ctx context.Context, subject label.Draft, create, negate []string) ([]label.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []label.Stored
	for _, val := range create {
		draft := subject
		draft.Val = val
		draft.Neg = false
		stored, err := s.createLabelLocked(ctx, draft)
		if err != nil {
			return nil, err
		}
		results = append(results, stored)
	}
	for _, val := range negate {
		draft := subject
		draft.Val = val
		draft.Neg = true
		stored, err := s.createLabelLocked(ctx, draft)
		if err != nil {
			return nil, err
		}
		results = append(results, stored)
	}
	return results, nil
}

// createLabelLocked must be called with s.mu held.
func (s *Sequencer) createLabelLocked(ctx context.Context, draft label.Draft) (label.Stored, error) {
	l := label.Label{
		Ver: 1,
		Src: draft.Src,
		URI: draft.URI,
		CID: draft.CID,
		Val: draft.Val,
		Neg: draft.Neg,
		Cts: draft.Cts,
		Exp: draft.Exp,
	}
	if l.Src == "" {
		l.Src = s.labelerDID
	}
	if l.Cts == "" {
		l.Cts = label.NowISO8601()
	}

	signed, err := label.Sign(l, s.priv)
	if err != nil {
		return label.Stored{}, errors.Wrap(err, "sign label")
	}

	id, err := s.store.Append(ctx, signed)
	if err != nil {
		return label.Stored{}, errors.Wrap(err, "append label")
	}

	stored := label.Stored{ID: id, Label: signed}
	if s.publisher != nil {
		s.publisher.Publish(stored)
	}
	return stored, nil
}
