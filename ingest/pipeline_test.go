package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/galnetdb/config"
	"github.com/pevans/galnetdb/epoch"
	"github.com/pevans/galnetdb/galnet"
	"github.com/pevans/galnetdb/store"
)

const testIndexPage = `<html><body>
<div id="block-frontier-galnet-frontier-galnet-block-filter">
  <a href="/galnet/02-Jan-3307#02-Jan-3307">02 JAN 3307</a>
  <a href="/galnet/01-Jan-3307#01-Jan-3307">01 JAN 3307</a>
</div>
</body></html>`

func dayPage(title, uid string) string {
	return `<html><body><h3 class="hiLite galnetNewsArticleTitle"><a href="/galnet/uid/` + uid + `">` +
		title + `</a></h3></body></html>`
}

func canonicalPage(body string) string {
	return `<html><body><p>date line</p><p>` + body + `</p></body></html>`
}

// testFeed is the two-article feed used by the pipeline tests
func testFeed() map[string]string {
	return map[string]string{
		"/":                   testIndexPage,
		"/galnet/01-Jan-3307": dayPage("Test A", "111"),
		"/galnet/02-Jan-3307": dayPage("Test B", "222"),
		"/galnet/uid/111/":    canonicalPage("Body%20A"),
		"/galnet/uid/222/":    canonicalPage("Body B"),
	}
}

// Test helper: serve pages; paths in stall block until the client gives up
func newFeedServer(t *testing.T, pages map[string]string, stall ...string) *httptest.Server {
	t.Helper()
	stalled := map[string]bool{}
	for _, p := range stall {
		stalled[p] = true
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if stalled[r.URL.Path] {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

var runStart = time.Date(2026, time.October, 17, 23, 30, 0, 0, time.FixedZone("PDT", -7*60*60))

// Test helper: build a pipeline writing to a SQLite database in dir
func newTestPipeline(t *testing.T, dir string, server *httptest.Server, createTable bool) *Pipeline {
	t.Helper()

	run := config.DefaultRunConfig()
	run.Driver = store.DriverSQLite
	run.Database = filepath.Join(dir, "galnet.db")
	run.CreateTable = createTable
	run.YearOffset = 300

	return NewPipeline(run, nil, &PipelineConfig{
		BaseURL:      server.URL,
		FetchTimeout: 500 * time.Millisecond,
		SettingsPath: filepath.Join(dir, "Settings.json"),
		Clock:        func() time.Time { return runStart },
	}, nil)
}

// Test helper: read every stored row
func readRows(t *testing.T, dir string) []store.Article {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{
		Driver:   store.DriverSQLite,
		Database: filepath.Join(dir, "galnet.db"),
	})
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	return rows
}

// TestRun_EndToEnd verifies two listing links become two rows in
// chronological order with one shared ingestion date
func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed())

	result, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 2, result.Links)
	assert.Equal(t, 2, result.Inserted)
	// The run started on 18 October in UTC
	assert.Equal(t, "2026-10-18", result.DateAdded.String())

	rows := readRows(t, dir)
	require.Len(t, rows, 2)

	assert.Equal(t, "Test A", rows[0].Title)
	assert.Equal(t, "111", rows[0].UID)
	assert.Equal(t, "3007-01-01", rows[0].DateReleased.String())
	assert.Equal(t, "Body A", rows[0].Text)

	assert.Equal(t, "Test B", rows[1].Title)
	assert.Equal(t, "222", rows[1].UID)
	assert.Equal(t, "3007-01-02", rows[1].DateReleased.String())

	assert.Less(t, rows[0].ID, rows[1].ID, "oldest article should be inserted first")
	assert.Equal(t, result.DateAdded, rows[0].DateAdded)
	assert.Equal(t, result.DateAdded, rows[1].DateAdded)
}

// TestRun_PersistsRunConfig verifies the settings file is written after a
// successful run
func TestRun_PersistsRunConfig(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed())

	_, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.NoError(t, err)

	saved, err := config.LoadRunConfig(filepath.Join(dir, "Settings.json"))
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, filepath.Join(dir, "galnet.db"), saved.Database)
	assert.Equal(t, "Articles", saved.Table)
	assert.Equal(t, store.DriverSQLite, saved.Driver)
	assert.Equal(t, config.SettingsVersion, saved.Version)
}

// TestRun_SecondRunCreateTableFails verifies schema creation is not
// idempotent
func TestRun_SecondRunCreateTableFails(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed())

	_, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.NoError(t, err)

	result, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.Error(t, err)

	var schemaErr *store.SchemaError
	require.True(t, errors.As(err, &schemaErr), "expected SchemaError, got %v", err)
	assert.True(t, schemaErr.Exists)
	assert.Equal(t, StateSchemaSetup, result.State)
	assert.Len(t, readRows(t, dir), 2)
}

// TestRun_SecondRunDuplicatesRows verifies that re-running without schema
// creation adds a second row per uid
func TestRun_SecondRunDuplicatesRows(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed())

	_, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.NoError(t, err)
	_, err = newTestPipeline(t, dir, server, false).Run(context.Background())
	require.NoError(t, err)

	perUID := map[string]int{}
	for _, row := range readRows(t, dir) {
		perUID[row.UID]++
	}
	assert.Equal(t, map[string]int{"111": 2, "222": 2}, perUID)
}

// TestRun_RejectDuplicates verifies the reject policy skips stored uids
func TestRun_RejectDuplicates(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed())

	_, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.NoError(t, err)

	p := newTestPipeline(t, dir, server, false)
	p.run.RejectDuplicates = true
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, readRows(t, dir), 2)
}

// TestRun_NetworkFailureMidRun verifies a timeout on the second article
// leaves only the first row
func TestRun_NetworkFailureMidRun(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed(), "/galnet/02-Jan-3307")

	result, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.Error(t, err)

	var netErr *galnet.NetworkError
	require.True(t, errors.As(err, &netErr), "expected NetworkError, got %v", err)
	assert.Equal(t, StateExtract, result.State)
	assert.Equal(t, 1, result.Inserted)

	rows := readRows(t, dir)
	require.Len(t, rows, 1)
	assert.Equal(t, "111", rows[0].UID)

	_, statErr := os.Stat(filepath.Join(dir, "Settings.json"))
	assert.True(t, os.IsNotExist(statErr), "a failed run should not write settings")
}

// TestRun_MalformedDateToken verifies a bad listing href aborts with a
// FormatError before anything is fetched for it
func TestRun_MalformedDateToken(t *testing.T) {
	dir := t.TempDir()
	pages := testFeed()
	pages["/"] = `<div id="block-frontier-galnet-frontier-galnet-block-filter"><a href="/galnet/yesterday">x</a></div>`
	server := newFeedServer(t, pages)

	result, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.Error(t, err)

	var formatErr *epoch.FormatError
	require.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
	assert.Equal(t, "yesterday", formatErr.Token)
	assert.Equal(t, StateTranslate, result.State)
	assert.Empty(t, readRows(t, dir))
}

// TestRun_EmptyListing verifies a missing listing block completes with no
// rows
func TestRun_EmptyListing(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, map[string]string{"/": "<html><body>maintenance</body></html>"})

	result, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Links)
	assert.Empty(t, readRows(t, dir))
}

// TestRun_ConnectionFailure verifies nothing proceeds without a store
func TestRun_ConnectionFailure(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed())

	p := newTestPipeline(t, dir, server, true)
	p.run.Database = filepath.Join(dir, "missing", "galnet.db")

	result, err := p.Run(context.Background())
	require.Error(t, err)

	var connErr *store.ConnectionError
	require.True(t, errors.As(err, &connErr), "expected ConnectionError, got %v", err)
	assert.Equal(t, StateConnecting, result.State)
	assert.Equal(t, 0, result.Links)
}

// TestRun_ExtractionFailure verifies missing markup aborts the run
func TestRun_ExtractionFailure(t *testing.T) {
	dir := t.TempDir()
	pages := testFeed()
	pages["/galnet/02-Jan-3307"] = "<html><body>no headings</body></html>"
	server := newFeedServer(t, pages)

	result, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.Error(t, err)

	var extractErr *galnet.ExtractionError
	require.True(t, errors.As(err, &extractErr), "expected ExtractionError, got %v", err)
	assert.Equal(t, 1, result.Inserted)
	assert.Len(t, readRows(t, dir), 1)
}

// TestRun_SecondArticleOfDayFails verifies articles of one day page are
// inserted as they are fetched, so a failure on the second keeps the first
func TestRun_SecondArticleOfDayFails(t *testing.T) {
	dir := t.TempDir()
	pages := testFeed()
	pages["/"] = `<div id="block-frontier-galnet-frontier-galnet-block-filter"><a href="/galnet/01-Jan-3307#01-Jan-3307">x</a></div>`
	pages["/galnet/01-Jan-3307"] = `<html><body>
<h3 class="hiLite galnetNewsArticleTitle"><a href="/galnet/uid/111">Test A</a></h3>
<h3 class="hiLite galnetNewsArticleTitle"><a href="/galnet/uid/333">Test C</a></h3>
</body></html>`
	server := newFeedServer(t, pages)

	result, err := newTestPipeline(t, dir, server, true).Run(context.Background())
	require.Error(t, err)

	var netErr *galnet.NetworkError
	require.True(t, errors.As(err, &netErr), "expected NetworkError, got %v", err)
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
	assert.Equal(t, StateExtract, result.State)
	assert.Equal(t, 1, result.Inserted)

	rows := readRows(t, dir)
	require.Len(t, rows, 1)
	assert.Equal(t, "111", rows[0].UID)
}

// TestRun_DateAddedTakenAtStart verifies the ingestion date is read once,
// before connecting
func TestRun_DateAddedTakenAtStart(t *testing.T) {
	dir := t.TempDir()
	server := newFeedServer(t, testFeed())

	p := newTestPipeline(t, dir, server, true)
	p.run.Database = filepath.Join(dir, "missing", "galnet.db")
	calls := 0
	p.config.Clock = func() time.Time {
		calls++
		return runStart
	}

	result, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateConnecting, result.State)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "2026-10-18", result.DateAdded.String())
}
