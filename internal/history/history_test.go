package history_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/history"
	"github.com/reporteria/reportviewer/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backends = []string{constants.HistoryFileBackend, constants.HistorySQLiteBackend}

// fixedClock returns a clock that advances by one minute on every call.
func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newStore(t *testing.T, backend, dir string) *history.Store {
	t.Helper()

	kv, err := history.Open(backend, dir)
	require.NoError(t, err, "Setup: could not open history backend")
	s := history.New(kv, history.WithNow(fixedClock()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddEvictsOldest(t *testing.T) {
	t.Parallel()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			s := newStore(t, backend, t.TempDir())
			for i := 1; i <= 6; i++ {
				require.NoError(t, s.Add(fmt.Sprintf("report%d.json", i), []byte(fmt.Sprintf(`{"n": %d}`, i))), "Add should not return an error")
			}

			records, err := s.List()
			require.NoError(t, err, "List should not return an error")
			require.Len(t, records, 5, "History should keep exactly 5 records")

			var names []string
			for _, r := range records {
				names = append(names, r.Name)
			}
			require.Equal(t, []string{"report6.json", "report5.json", "report4.json", "report3.json", "report2.json"}, names,
				"History should be newest first with the oldest evicted")
			require.JSONEq(t, `{"n": 6}`, string(records[0].Data), "Newest record should hold its data")
			require.True(t, records[0].Date.After(records[1].Date), "Newest record should have the latest date")
		})
	}
}

func TestPersistsAcrossStores(t *testing.T) {
	t.Parallel()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()

			kv, err := history.Open(backend, dir)
			require.NoError(t, err, "Setup: could not open history backend")
			first := history.New(kv)
			require.NoError(t, first.Add("a.json", []byte(`{"Procesador": "Intel"}`)), "Add should not return an error")
			require.NoError(t, first.Close(), "Close should not return an error")

			second := newStore(t, backend, dir)
			r, err := second.Get(0)
			require.NoError(t, err, "Get should find the record written by another store")
			require.Equal(t, "a.json", r.Name)
			require.JSONEq(t, `{"Procesador": "Intel"}`, string(r.Data))
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		index int

		wantName string
		wantErr  error
	}{
		"Newest":           {index: 0, wantName: "second.json"},
		"Oldest":           {index: 1, wantName: "first.json"},
		"Past the end":     {index: 2, wantErr: history.ErrOutOfRange},
		"Negative index":   {index: -1, wantErr: history.ErrOutOfRange},
		"Far past the end": {index: 100, wantErr: history.ErrOutOfRange},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := newStore(t, constants.HistoryFileBackend, t.TempDir())
			require.NoError(t, s.Add("first.json", []byte(`{}`)), "Setup: Add should not return an error")
			require.NoError(t, s.Add("second.json", []byte(`{}`)), "Setup: Add should not return an error")

			r, err := s.Get(tc.index)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "Get should return the expected error")
				return
			}
			require.NoError(t, err, "Get should not return an error")
			require.Equal(t, tc.wantName, r.Name)
		})
	}
}

func TestAddRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	s := newStore(t, constants.HistoryFileBackend, t.TempDir())
	err := s.Add("bad.json", []byte(`{"Procesador": `))
	require.ErrorIs(t, err, history.ErrInvalidData, "Add should reject invalid JSON")

	records, err := s.List()
	require.NoError(t, err, "List should not return an error")
	require.Empty(t, records, "Nothing should be stored for invalid data")
}

func TestClear(t *testing.T) {
	t.Parallel()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			s := newStore(t, backend, t.TempDir())
			require.NoError(t, s.Clear(), "Clearing an empty history should not return an error")
			require.NoError(t, s.Add("a.json", []byte(`{}`)), "Setup: Add should not return an error")
			require.NoError(t, s.Clear(), "Clear should not return an error")

			records, err := s.List()
			require.NoError(t, err, "List should not return an error")
			require.Empty(t, records, "History should be empty after Clear")
		})
	}
}

func TestListEmptyHistory(t *testing.T) {
	t.Parallel()

	s := newStore(t, constants.HistoryFileBackend, t.TempDir())
	records, err := s.List()
	require.NoError(t, err, "List should not return an error")
	require.NotNil(t, records, "An empty history should be an empty list")
	require.Empty(t, records)
}

func TestCorruptHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.HistoryKey+constants.ReportExtension), []byte("not json"), 0600),
		"Setup: could not write corrupt history")

	s := newStore(t, constants.HistoryFileBackend, dir)
	_, err := s.List()
	require.Error(t, err, "List should report a corrupt history")

	require.NoError(t, s.Add("a.json", []byte(`{}`)), "Add should replace a corrupt history")
	records, err := s.List()
	require.NoError(t, err, "List should not return an error once the history is rewritten")
	require.Len(t, records, 1)
}

func TestWithCapacityAndKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	kv, err := history.NewFileKV(dir)
	require.NoError(t, err, "Setup: could not create file backend")
	s := history.New(kv, history.WithCapacity(2), history.WithKey("custom"))

	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(n, []byte(`{}`)), "Add should not return an error")
	}
	records, err := s.List()
	require.NoError(t, err, "List should not return an error")
	require.Len(t, records, 2, "Capacity should be honored")
	assert.FileExists(t, filepath.Join(dir, "custom"+constants.ReportExtension), "History should be stored under the custom key")
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := history.Open("redis", t.TempDir())
	require.Error(t, err, "Open should reject unknown backends")
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", constants.HistoryDBName)
	for range 2 {
		kv, err := history.NewSQLiteKV(path)
		require.NoError(t, err, "Opening the database again should not fail")
		require.NoError(t, kv.Close(), "Close should not return an error")
	}
}

func TestFileBackendLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := newStore(t, constants.HistoryFileBackend, dir)
	for _, n := range []string{"a.json", "b.json"} {
		require.NoError(t, s.Add(n, []byte(`{"Hostname": "PC"}`)), "Add should not return an error")
	}

	files := testutils.DirContents(t, dir)
	require.Len(t, files, 1, "Only the history document should be left, without temporary files")

	content, ok := files[constants.HistoryKey+constants.ReportExtension]
	require.True(t, ok, "History should be stored under its key")
	require.Contains(t, content, `"name":"b.json"`, "History document should hold the records")
}

func TestAddFailsOnReadOnlyDirectory(t *testing.T) {
	t.Parallel()
	testutils.SkipUnlessUnixNonRoot(t)

	dir := t.TempDir()
	s := newStore(t, constants.HistoryFileBackend, dir)
	require.NoError(t, os.Chmod(dir, 0500), "Setup: could not make the directory read-only")
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

	require.Error(t, s.Add("a.json", []byte(`{}`)), "Add should fail when the history cannot be written")

	records, err := s.List()
	require.NoError(t, err, "List should not return an error")
	require.Empty(t, records, "A failed Add should leave the history untouched")
}
