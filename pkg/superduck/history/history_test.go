package history

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixdelasPozas/SuperDuck/pkg/transfer"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(kind transfer.Kind, finished time.Time, failed map[string]error) transfer.Result {
	req := transfer.NewRequest(kind, []transfer.Item{{Path: "a", Size: 4}, {Path: "b", Size: 6}}, "dest")
	req.Created = finished.Add(-time.Second)
	res := transfer.Result{Request: req, Finished: finished, Failed: failed}
	for _, it := range req.Items {
		if _, bad := failed[it.Path]; !bad {
			res.Succeeded = append(res.Succeeded, it)
		}
	}
	return res
}

func TestOpen(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// reopening an existing log works
	s, err = Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRecordAndGet(t *testing.T) {
	s := openStore(t)

	res := result(transfer.Upload, time.Now(), map[string]error{"b": errors.New("AccessDenied")})
	rec, err := s.Record(res)
	require.NoError(t, err)
	assert.Equal(t, "upload", rec.Kind)
	assert.Equal(t, 2, rec.Items)
	assert.Equal(t, 1, rec.Succeeded)
	assert.Equal(t, int64(4), rec.Bytes)
	assert.Equal(t, "partial", rec.Status())
	assert.Equal(t, time.Second, rec.Duration)

	got, err := s.Get(res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, "AccessDenied", got.Failed["b"])
	assert.Equal(t, rec.ID, got.ID)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := openStore(t)
	base := time.Now().Add(-time.Hour)

	var ids []string
	for i := range 5 {
		res := result(transfer.Delete, base.Add(time.Duration(i)*time.Minute), nil)
		_, err := s.Record(res)
		require.NoError(t, err)
		ids = append(ids, res.Request.ID)
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[4].ID)

	some, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, ids[3], some[1].ID)
}

func TestListEmpty(t *testing.T) {
	s := openStore(t)
	records, err := s.List(10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t)
	rec := Record{ID: "op-1", Timestamp: time.Now(), Kind: "delete"}
	require.NoError(t, s.Put(rec))

	rec.Timestamp = rec.Timestamp.Add(time.Minute)
	rec.Aborted = true
	require.NoError(t, s.Put(rec))

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Aborted)

	assert.Error(t, s.Put(Record{}))
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	now := time.Now()

	old := result(transfer.Download, now.Add(-48*time.Hour), nil)
	recent := result(transfer.Download, now.Add(-time.Hour), nil)
	_, err := s.Record(old)
	require.NoError(t, err)
	_, err = s.Record(recent)
	require.NoError(t, err)

	n, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(old.Request.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(recent.Request.ID)
	assert.NoError(t, err)

	n, err = s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{Succeeded: 2}, "ok"},
		{Record{Aborted: true}, "aborted"},
		{Record{Failed: map[string]string{"a": "x"}}, "failed"},
		{Record{Succeeded: 1, Failed: map[string]string{"a": "x"}}, "partial"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Status())
		})
	}
}
