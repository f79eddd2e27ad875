// Package lazysheet streams spreadsheet-like files (xlsx, ods, csv, tsv)
// through one format-agnostic API. Sheets and rows are pulled on demand from
// the decoder, so memory stays bounded regardless of file size.
//
// Every Sheets call opens an import session that owns a decoder handle and,
// for non-local sources, a temp copy of the input. Draining the returned
// collection releases both. A caller that stops early must call Release on
// the collection, or Close on the Importer:
//
//	imp, err := lazysheet.New(lazysheet.FromPath("report.xlsx"))
//	if err != nil {
//		return err
//	}
//	defer imp.Close()
//
//	sheet, err := imp.Sheet(lazysheet.ByName("Totals"))
//	if err != nil {
//		return err
//	}
//	rows := sheet.Rows()
//	for rows.Next() {
//		fmt.Println(rows.Row())
//	}
//	return rows.Err()
//
// An Importer is not safe for concurrent use.
package lazysheet

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/reader"
)

// Importer binds a source and options and opens import sessions over it.
type Importer struct {
	source   Source
	opts     *Options
	sessions map[*session]struct{}
	latest   *session
}

// New creates an Importer. Option errors, such as an unknown format, are
// reported here before any I/O.
func New(src Source, opts ...Option) (*Importer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.storage == nil {
		o.storage = DirStorage{Dir: o.tempDir}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Importer{
		source:   src,
		opts:     o,
		sessions: make(map[*session]struct{}),
	}, nil
}

// File binds or replaces the source. Sessions already open keep their input.
func (imp *Importer) File(src Source) *Importer {
	imp.source = src
	return imp
}

// Source returns the bound source.
func (imp *Importer) Source() Source {
	return imp.source
}

// Sheets opens a session and returns its lazy sheet collection.
//
// When resolution or opening fails, the temp copy and any partially opened
// decoder are released before the error is returned. On success the
// collection owns the cleanup: draining it releases the session.
func (imp *Importer) Sheets() (*SheetCollection, error) {
	s := &session{
		id:        uuid.NewString(),
		owner:     imp,
		source:    imp.source.Name(),
		temp:      NewTempResource(imp.opts.storage, imp.opts.logger),
		logger:    imp.opts.logger,
		skipEmpty: imp.opts.skipEmpty,
	}

	sheets, err := imp.open(s)
	if err != nil {
		// the cleanup outcome is logged by release; err is returned as is
		_ = s.release()
		return nil, err
	}

	imp.sessions[s] = struct{}{}
	imp.latest = s
	return newSheetCollection(s, sheets), nil
}

func (imp *Importer) open(s *session) (reader.Stream[reader.SheetHandle], error) {
	src := imp.source
	if err := src.check(); err != nil {
		return nil, err
	}

	path := src.path
	if !src.Local() {
		p, err := s.temp.Materialize(src)
		if err != nil {
			return nil, err
		}
		path = p
	}

	format, err := imp.resolveFormat(src, path)
	if err != nil {
		return nil, err
	}
	open, err := imp.opts.openFunc(format)
	if err != nil {
		return nil, err
	}

	dec, err := open(path, imp.opts.readerOptions(src.Name()))
	if err != nil {
		return nil, err
	}
	s.decoder = dec

	sheets, err := dec.Sheets()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("session opened", "session", s.id, "source", src.Name(), "format", format, "path", path)
	return sheets, nil
}

// resolveFormat applies the override, then the extension, then a content probe.
func (imp *Importer) resolveFormat(src Source, path string) (Format, error) {
	if imp.opts.format != "" {
		return imp.opts.format, nil
	}
	if f, ok := reader.FormatFromExt(filepath.Ext(src.Name())); ok {
		return f, nil
	}
	return reader.DetectFormat(path)
}

// Sheet returns the sheet matching key, or NullSheet when there is none.
// A found sheet keeps its session open until drained or Close.
func (imp *Importer) Sheet(key SheetKey) (Sheet, error) {
	coll, err := imp.Sheets()
	if err != nil {
		return nil, err
	}
	sh, _, err := coll.Index(key)
	if err != nil {
		coll.Release()
		return nil, err
	}
	return sh, nil
}

// First returns the first sheet without decoding the others, or NullSheet
// for a workbook with no sheets. The session stays open until Close.
func (imp *Importer) First() (Sheet, error) {
	coll, err := imp.Sheets()
	if err != nil {
		return nil, err
	}
	sh, err := coll.First()
	if err != nil {
		coll.Release()
		return nil, err
	}
	return sh, nil
}

// Working returns the sheet whose rows are being drained in a live session,
// preferring the most recent one. A fresh pass is opened only when no session
// is live; NullSheet means no sheet holds the cursor.
func (imp *Importer) Working() (Sheet, error) {
	if s := imp.latest; s != nil && !s.released && s.working != nil {
		return s.working, nil
	}
	live := false
	for s := range imp.sessions {
		if s.released {
			continue
		}
		live = true
		if s.working != nil {
			return s.working, nil
		}
	}
	if live {
		return NullSheet{}, nil
	}

	var found Sheet = NullSheet{}
	err := imp.Each(func(sh Sheet) bool {
		if sh.IsWorking() {
			found = sh
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Each calls fn for every sheet in order until fn returns false. The session
// is released before Each returns, whether it stopped early or not.
func (imp *Importer) Each(fn func(Sheet) bool) error {
	coll, err := imp.Sheets()
	if err != nil {
		return err
	}
	err = coll.Each(fn)
	if rerr := coll.Release(); err == nil {
		err = rerr
	}
	return err
}

// ToArray realises every sheet and row. Memory is not bounded.
func (imp *Importer) ToArray() ([][]models.Row, error) {
	coll, err := imp.Sheets()
	if err != nil {
		return nil, err
	}
	out, err := coll.ToArray()
	if rerr := coll.Release(); err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Collect realises every sheet into a queryable list. Memory is not bounded.
func (imp *Importer) Collect() (models.SheetList, error) {
	coll, err := imp.Sheets()
	if err != nil {
		return nil, err
	}
	out, err := coll.Collect()
	if rerr := coll.Release(); err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Workbook is Collect with the source name attached.
func (imp *Importer) Workbook() (*models.WorkbookData, error) {
	sheets, err := imp.Collect()
	if err != nil {
		return nil, err
	}
	return &models.WorkbookData{BookName: imp.source.Name(), Sheets: sheets}, nil
}

// Close releases every session still open, such as those left by First,
// Sheet or an abandoned collection, and retries temp removals that failed
// earlier.
func (imp *Importer) Close() error {
	var errs []error
	for s := range imp.sessions {
		if err := s.release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// retain keeps a session whose temp copy could not be removed, so Close
// retries the removal.
func (imp *Importer) retain(s *session) {
	imp.sessions[s] = struct{}{}
}

// forget drops a fully released session.
func (imp *Importer) forget(s *session) {
	delete(imp.sessions, s)
	if imp.latest == s {
		imp.latest = nil
	}
}
