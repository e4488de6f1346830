package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teranos/labelmaker/label"
	"github.com/teranos/labelmaker/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "labels.db")
	s := New(dbPath, nil)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAppend(t *testing.T, s *Store, uri, val string) int64 {
	t.Helper()
	id, err := s.Append(context.Background(), label.Label{
		Ver: 1, Src: "did:plc:aaa", URI: uri, Val: val, Cts: "2024-01-01T00:00:00Z", Sig: []byte("sig"),
	})
	require.NoError(t, err)
	return id
}

func TestAppend_AssignsMonotonicIDs(t *testing.T) {
	s := newTestStore(t)

	id1 := mustAppend(t, s, "did:plc:bbb", "spam")
	id2 := mustAppend(t, s, "did:plc:ccc", "spam")

	require.Less(t, id1, id2)
}

func TestQuery_EmptyStore(t *testing.T) {
	s := newTestStore(t)

	labels, err := s.Query(context.Background(), store.QueryParams{Limit: 50})
	require.NoError(t, err)
	require.Empty(t, labels)

	maxID, err := s.MaxID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(0), maxID)
}

func TestQuery_WildcardPrefixMatch(t *testing.T) {
	s := newTestStore(t)

	mustAppend(t, s, "did:plc:bbb", "spam")
	mustAppend(t, s, "did:plc:bbc", "spam")
	mustAppend(t, s, "did:plc:ccc", "spam")

	labels, err := s.Query(context.Background(), store.QueryParams{
		URIPatterns: []string{"did:plc:bb*"},
		Limit:       50,
	})
	require.NoError(t, err)
	require.Len(t, labels, 2)
	require.Equal(t, "did:plc:bbb", labels[0].URI)
	require.Equal(t, "did:plc:bbc", labels[1].URI)
}

func TestQuery_AfterIDPaginates(t *testing.T) {
	s := newTestStore(t)

	id1 := mustAppend(t, s, "did:plc:bbb", "spam")
	mustAppend(t, s, "did:plc:ccc", "spam")

	labels, err := s.Query(context.Background(), store.QueryParams{AfterID: id1, Limit: 50})
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.Equal(t, "did:plc:ccc", labels[0].URI)
}

func TestScan_StrictlyOrderedAfterCursor(t *testing.T) {
	s := newTestStore(t)

	id1 := mustAppend(t, s, "did:plc:bbb", "spam")
	mustAppend(t, s, "did:plc:ccc", "spam")
	mustAppend(t, s, "did:plc:ddd", "spam")

	results, err := s.Scan(context.Background(), id1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Less(t, results[0].ID, results[1].ID)
}

func TestQuery_SourceFilter(t *testing.T) {
	s := newTestStore(t)

	ctx := context.Background()
	_, err := s.Append(ctx, label.Label{Ver: 1, Src: "did:plc:aaa", URI: "did:plc:x", Val: "spam", Cts: "2024-01-01T00:00:00Z", Sig: []byte("s")})
	require.NoError(t, err)
	_, err = s.Append(ctx, label.Label{Ver: 1, Src: "did:plc:other", URI: "did:plc:y", Val: "spam", Cts: "2024-01-01T00:00:00Z", Sig: []byte("s")})
	require.NoError(t, err)

	labels, err := s.Query(ctx, store.QueryParams{Sources: []string{"did:plc:aaa"}, Limit: 50})
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.Equal(t, "did:plc:x", labels[0].URI)
}
