package importer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cegidsync/cegidsync/internal/model"
	"github.com/cegidsync/cegidsync/internal/schema"
)

// memWriter keeps tables in memory.
type memWriter struct {
	tables    map[string][]model.Record
	inserts   int
	clears    int
	insertErr error
}

func newMemWriter() *memWriter {
	return &memWriter{tables: make(map[string][]model.Record)}
}

func (w *memWriter) Clear(_ context.Context, table string) (int64, error) {
	w.clears++
	n := int64(len(w.tables[table]))
	w.tables[table] = nil
	return n, nil
}

func (w *memWriter) Insert(_ context.Context, table string, _ []string, records []model.Record) error {
	if w.insertErr != nil {
		return w.insertErr
	}
	w.inserts++
	w.tables[table] = append(w.tables[table], records...)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImport_CumulativePayroll(t *testing.T) {
	path := writeFile(t, t.TempDir(), "histo.csv", "PHC_SALARIE;PHC_CUMULPAIE;PHC_MONTANT\nE001;SALAIRE;1500,50\n")
	w := newMemWriter()

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, "is_cegid_histocumsal", res.Table)
	assert.Equal(t, "histocumsal", res.Entity)
	assert.Equal(t, EncodingUTF8, res.Encoding)
	assert.Equal(t, ';', res.Delimiter)
	assert.Empty(t, res.Error)

	rows := w.tables["is_cegid_histocumsal"]
	require.Len(t, rows, 1)
	assert.Equal(t, "E001", rows[0]["phc_salarie"])
	assert.Equal(t, "SALAIRE", rows[0]["phc_cumulpaie"])
	assert.True(t, decimal.RequireFromString("1500.50").Equal(rows[0]["phc_montant"].(decimal.Decimal)))
}

func TestImport_UnknownSchema(t *testing.T) {
	path := writeFile(t, t.TempDir(), "foo.csv", "FOO;BAR\n1;2\n")
	w := newMemWriter()

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.ErrorIs(t, res.Err, ErrUnknownSchema)
	assert.Contains(t, res.Error, "schema not recognized")
	assert.Contains(t, res.Error, "PHC_*")
	assert.Zero(t, w.clears, "unknown files must not touch any table")
}

func TestImport_NoColumns(t *testing.T) {
	dir := t.TempDir()
	for _, content := range []string{"", "\xEF\xBB\xBF", ";;\n"} {
		path := writeFile(t, dir, "empty.csv", content)
		res, err := New(Options{}).Import(context.Background(), newMemWriter(), path)
		require.NoError(t, err)
		assert.False(t, res.Succeeded)
		assert.ErrorIs(t, res.Err, ErrNoColumns, "content %q", content)
	}
}

func TestImport_CommaDelimiter(t *testing.T) {
	content := "Y_GENERAL,Y_AXE,Y_SECTION,Y_REFINTERNE,Y_DEBIT\n601000,A1,S01,42,\"12.5\"\n"
	path := writeFile(t, t.TempDir(), "ana.csv", content)
	w := newMemWriter()

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.Error)
	assert.Equal(t, ',', res.Delimiter)
	assert.Equal(t, "analytiq", res.Entity)

	rec := w.tables["is_cegid_analytiq"][0]
	assert.Equal(t, int64(42), rec["y_refinterne"])
	assert.Equal(t, "12.5", rec["y_debit"].(decimal.Decimal).String())
}

func TestImport_CommaDelimiterQuotedCommaDecimal(t *testing.T) {
	content := "PHC_SALARIE,PHC_CUMULPAIE,PHC_MONTANT\n\"E001\",\"CP2025\",\"1500,50\"\n"
	path := writeFile(t, t.TempDir(), "histo.csv", content)
	w := newMemWriter()

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.Error)
	assert.Equal(t, ',', res.Delimiter)
	assert.Equal(t, "histocumsal", res.Entity)
	assert.Equal(t, 1, res.Records)

	rows := w.tables["is_cegid_histocumsal"]
	require.Len(t, rows, 1)
	assert.Equal(t, "E001", rows[0]["phc_salarie"])
	assert.Equal(t, "CP2025", rows[0]["phc_cumulpaie"])
	amount, ok := rows[0]["phc_montant"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(amount), "got %s", amount)
}

func TestImport_ByteOrderMark(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bom.csv", "\xEF\xBB\xBFPHC_SALARIE;PHC_CUMULPAIE;PHC_MONTANT\nE001;BRUT;10\n")
	w := newMemWriter()

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.Error)
	assert.Equal(t, "PHC_SALARIE", res.Columns[0])
	assert.Len(t, w.tables["is_cegid_histocumsal"], 1)
}

func TestImport_Latin1Fallback(t *testing.T) {
	// "Congés payés" in ISO-8859-1.
	content := "PCN_SALARIE;PCN_LIBELLE;PCN_JOURS\nE001;Cong\xe9s pay\xe9s;2,5\n"
	path := writeFile(t, t.TempDir(), "abs.csv", content)
	w := newMemWriter()

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.Error)
	assert.Equal(t, EncodingLatin1, res.Encoding)
	assert.Equal(t, ';', res.Delimiter)

	rec := w.tables["is_cegid_absencesalarie"][0]
	assert.Equal(t, "Congés payés", rec["pcn_libelle"])
	assert.Equal(t, "2.5", rec["pcn_jours"].(decimal.Decimal).String())
}

func TestImport_BlankRowsDropped(t *testing.T) {
	content := "E_GENERAL;E_LIBELLE;E_DEBIT\n401000;Achat;10\n;;\n  ;\"\";\n512000;Banque;\n"
	path := writeFile(t, t.TempDir(), "ecr.csv", content)
	w := newMemWriter()

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.Error)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 4, res.Rows)

	second := w.tables["is_cegid_ecriture"][1]
	_, hasDebit := second["e_debit"]
	assert.False(t, hasDebit, "blank amount stays absent, not zero")
}

func TestImport_Batches(t *testing.T) {
	var b strings.Builder
	b.WriteString("E_GENERAL;E_DEBIT\n")
	for i := range 25 {
		b.WriteString("401000;")
		b.WriteString(decimal.NewFromInt(int64(i)).String())
		b.WriteString("\n")
	}
	path := writeFile(t, t.TempDir(), "ecr.csv", b.String())
	w := newMemWriter()

	im := New(Options{BatchSize: 10})
	assert.Equal(t, 10, im.BatchSize())
	res, err := im.Import(context.Background(), w, path)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Records)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 3, w.inserts)
}

func TestNew_DefaultBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, New(Options{BatchSize: -5}).BatchSize())
}

func TestImport_Idempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "histo.csv", "PHC_SALARIE;PHC_CUMULPAIE;PHC_MONTANT\nE001;BRUT;1\nE002;BRUT;2\n")
	w := newMemWriter()
	im := New(Options{})

	first, err := im.Import(context.Background(), w, path)
	require.NoError(t, err)
	second, err := im.Import(context.Background(), w, path)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Records)
	assert.Equal(t, int64(0), first.Cleared)
	assert.Equal(t, int64(2), second.Cleared)
	assert.Len(t, w.tables["is_cegid_histocumsal"], 2)
}

func TestImport_RequiredFieldLeavesTableEmpty(t *testing.T) {
	w := newMemWriter()
	w.tables["is_cegid_histocumsal"] = []model.Record{{"phc_salarie": "OLD", "phc_cumulpaie": "OLD"}}
	path := writeFile(t, t.TempDir(), "histo.csv", "PHC_SALARIE;PHC_CUMULPAIE;PHC_MONTANT\nE001;BRUT;1\nE002;;2\n")

	res, err := New(Options{BatchSize: 1}).Import(context.Background(), w, path)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.ErrorIs(t, res.Err, ErrRequiredField)
	assert.Contains(t, res.Error, "line 3")
	assert.Contains(t, res.Error, "PHC_CUMULPAIE")
	assert.Zero(t, res.Records)
	assert.Empty(t, w.tables["is_cegid_histocumsal"])
}

func TestImport_DuplicateKey(t *testing.T) {
	w := newMemWriter()
	path := writeFile(t, t.TempDir(), "histo.csv", "PHC_SALARIE;PHC_CUMULPAIE\nE001;BRUT\nE002;BRUT\nE001;BRUT\n")

	res, err := New(Options{}).Import(context.Background(), w, path)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.ErrorIs(t, res.Err, ErrDuplicateKey)
	assert.Equal(t, "line 4: duplicate of line 2", res.Error)
	assert.Empty(t, w.tables["is_cegid_histocumsal"])
}

func TestImport_WriterFault(t *testing.T) {
	w := newMemWriter()
	w.insertErr = errors.New("connection reset")
	path := writeFile(t, t.TempDir(), "histo.csv", "PHC_SALARIE;PHC_CUMULPAIE\nE001;BRUT\n")

	_, err := New(Options{}).Import(context.Background(), w, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestImport_MissingFile(t *testing.T) {
	_, err := New(Options{}).Import(context.Background(), newMemWriter(), filepath.Join(t.TempDir(), "gone.csv"))
	assert.Error(t, err)
}

func TestImport_Cancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "histo.csv", "PHC_SALARIE;PHC_CUMULPAIE\nE001;BRUT\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Import(ctx, newMemWriter(), path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspect(t *testing.T) {
	path := writeFile(t, t.TempDir(), "histo.csv", "PHC_SALARIE;PHC_CUMULPAIE\nE001;BRUT\n;\nE002;BRUT\n")

	res, err := New(Options{}).Inspect(path)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "histocumsal", res.Entity)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 3, res.Rows)
	assert.Zero(t, res.Cleared)
}

func TestMapRows(t *testing.T) {
	e, ok := schema.ByName("absencesalarie")
	require.True(t, ok)
	header := []string{"pcn_salarie ", "PCN_ORDRE", "PCN_DATEDEBUTABS", "PCN_HEURES", "UNRELATED"}
	rows := []Row{
		{Line: 2, Fields: []string{"E001", "3", "2025-01-15", "7,456", "x"}},
		{Line: 3, Fields: []string{"", "", "", "", "only unmapped"}},
		{Line: 4, Fields: []string{"E002"}},
	}

	got := map[int]model.Record{}
	for line, rec := range MapRows(header, rows, e) {
		got[line] = rec
	}

	require.Len(t, got, 2)
	first := got[2]
	assert.Equal(t, "E001", first["pcn_salarie"])
	assert.Equal(t, int64(3), first["pcn_ordre"])
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), first["pcn_datedebutabs"])
	assert.Equal(t, "7.46", first["pcn_heures"].(decimal.Decimal).String())
	assert.Equal(t, model.Record{"pcn_salarie": "E002"}, got[4])
}

func TestMapRows_StopsEarly(t *testing.T) {
	e, _ := schema.ByName("histocumsal")
	rows := []Row{
		{Line: 2, Fields: []string{"A", "B"}},
		{Line: 3, Fields: []string{"C", "D"}},
	}
	n := 0
	for range MapRows([]string{"PHC_SALARIE", "PHC_CUMULPAIE"}, rows, e) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "x")
	writeFile(t, dir, "B.CSV", "x")
	writeFile(t, dir, "c.csv.archive", "x")
	writeFile(t, dir, "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	l, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, l.Files, 2)
	assert.Equal(t, 1, l.Archived)

	names := []string{l.Files[0].Name, l.Files[1].Name}
	assert.ElementsMatch(t, []string{"a.csv", "B.CSV"}, names)
	assert.Equal(t, int64(1), l.Files[0].Size)
}

// vanished is a directory entry whose file was removed after the listing.
type vanished struct{ name string }

func (v vanished) Name() string               { return v.name }
func (v vanished) IsDir() bool                { return false }
func (v vanished) Type() fs.FileMode          { return 0 }
func (v vanished) Info() (fs.FileInfo, error) { return nil, fs.ErrNotExist }

func TestScan_SkipsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "x")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	entries = append([]fs.DirEntry{vanished{name: "gone.csv"}}, entries...)

	l := collect(dir, entries)
	require.Len(t, l.Files, 1)
	assert.Equal(t, "a.csv", l.Files[0].Name)
	assert.Equal(t, filepath.Join(dir, "a.csv"), l.Files[0].Path)
}

func TestScan_MissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRoute(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "histo.csv", "x")
	now := time.Date(2025, 3, 4, 9, 5, 7, 0, time.Local)

	dst, err := Route(path, Archive, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive", "20250304_090507_histo.csv"), dst)
	assert.FileExists(t, dst)
	assert.NoFileExists(t, path)
}

func TestRoute_SameSecondCollision(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 4, 9, 5, 7, 0, time.Local)

	var dsts []string
	for range 3 {
		path := writeFile(t, dir, "histo.csv", "x")
		dst, err := Route(path, Anomaly, now)
		require.NoError(t, err)
		dsts = append(dsts, filepath.Base(dst))
	}
	assert.Equal(t, []string{
		"20250304_090507_histo.csv",
		"20250304_090507_1_histo.csv",
		"20250304_090507_2_histo.csv",
	}, dsts)
}

func TestRoute_SameContentDistinctEntries(t *testing.T) {
	dir := t.TempDir()
	content := "PHC_SALARIE;PHC_CUMULPAIE\nE001;BRUT\n"
	a := writeFile(t, dir, "a.csv", content)
	b := writeFile(t, dir, "b.csv", content)
	now := time.Now()

	_, err := Route(a, Archive, now)
	require.NoError(t, err)
	_, err = Route(b, Archive, now)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "archive"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRoute_MissingSource(t *testing.T) {
	_, err := Route(filepath.Join(t.TempDir(), "gone.csv"), Archive, time.Now())
	assert.Error(t, err)
}
