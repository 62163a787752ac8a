// Catalog writer.
//
// A catalog is written once per source, straight after a scan or a
// compaction. The writer holds an exclusive OS lock on the file for its
// whole life, buffers entry lines and flushes them in batches, and rewrites
// the header with the final entry count on Close. A catalog whose header
// still reads zero entries while lines follow was not closed cleanly.
package ldt

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
)

// Catalog writer defaults.
const (
	DefaultFlushEvery = 100
)

// CatalogOptions configures catalog files.
type CatalogOptions struct {
	HashAlgorithm int          // entry id hash (default AlgXXHash3)
	FlushEvery    int          // entries buffered between flushes (default 100)
	ReadBuffer    int          // reader buffer (default 64KB)
	MaxEntrySize  int          // longest entry line accepted by readers (default 1MB)
	SyncWrites    bool         // fsync after every flush
	Logger        *slog.Logger // default slog.Default()
}

func (o *CatalogOptions) defaults() {
	if o.HashAlgorithm == 0 {
		o.HashAlgorithm = AlgXXHash3
	}
	if o.FlushEvery <= 0 {
		o.FlushEvery = DefaultFlushEvery
	}
	if o.ReadBuffer == 0 {
		o.ReadBuffer = 64 * 1024
	}
	if o.MaxEntrySize == 0 {
		o.MaxEntrySize = 1024 * 1024
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Entry is one catalog line.
type Entry struct {
	ID     string            `json:"_id"`
	Title  string            `json:"_t"`
	Offset int64             `json:"_o"`
	Size   int64             `json:"_s"` // encoded, negative for compacted blocks
	Line   int64             `json:"_n"`
	Fields map[string]string `json:"_f,omitempty"`
}

// Index returns the record index the entry points at.
func (e Entry) Index() RecordIndex {
	return RecordIndex{StartOffset: e.Offset, ByteSize: e.Size, StartLine: e.Line, Fields: e.Fields}
}

// Entry builds the catalog entry for the n-th record (1-based) of source,
// titled and mapped per the parser configuration. Without a field mapping
// every header value is kept.
func (p *Parser) Entry(ri RecordIndex, source string, n int) Entry {
	fields := ri.Fields
	if len(p.cfg.RecordFieldsMapping) > 0 {
		fields = ri.Map(p.cfg.RecordFieldsMapping)
	}
	return Entry{
		Title:  ri.Title(p.cfg.RecordTitleFields, source, n),
		Offset: ri.StartOffset,
		Size:   ri.ByteSize,
		Line:   ri.StartLine,
		Fields: fields,
	}
}

// CatalogWriter appends entries to a new catalog file.
type CatalogWriter struct {
	root    *os.Root
	name    string
	f       *os.File
	w       *bufio.Writer
	lock    *fileLock
	header  Header
	opts    CatalogOptions
	pending int
	closed  bool
}

// CreateCatalog creates (or truncates) the catalog name inside dir and
// locks it exclusively until Close.
func CreateCatalog(dir, name string, eol EOL, compacted bool, opts CatalogOptions) (*CatalogWriter, error) {
	opts.defaults()
	if !knownAlg(opts.HashAlgorithm) {
		return nil, fmt.Errorf("%w: unknown hash algorithm %d", ErrConfiguration, opts.HashAlgorithm)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	f, err := root.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		root.Close()
		return nil, err
	}

	cw := &CatalogWriter{
		root: root,
		name: name,
		f:    f,
		lock: &fileLock{f: f},
		header: Header{
			Version:   CatalogVersion,
			Algorithm: opts.HashAlgorithm,
			EOL:       eol.Width(),
			Compacted: compacted,
			Timestamp: now(),
		},
		opts: opts,
	}
	if err := cw.lock.Lock(LockExclusive); err != nil {
		f.Close()
		root.Close()
		return nil, fmt.Errorf("catalog: lock: %w", err)
	}

	buf, err := cw.header.encode()
	if err == nil {
		_, err = f.Write(buf)
	}
	if err != nil {
		cw.lock.Unlock()
		f.Close()
		root.Close()
		return nil, fmt.Errorf("catalog: write header: %w", err)
	}

	cw.w = bufio.NewWriterSize(f, opts.ReadBuffer)
	return cw, nil
}

// Add appends e, computing its id from the title.
func (cw *CatalogWriter) Add(e Entry) error {
	if cw.closed {
		return ErrClosed
	}
	e.ID = entryID(e.Title, cw.header.Algorithm)

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := cw.w.Write(data); err != nil {
		return fmt.Errorf("catalog: write: %w", err)
	}

	cw.header.Count++
	cw.pending++
	if cw.pending >= cw.opts.FlushEvery {
		if err := cw.flush(); err != nil {
			return err
		}
	}
	if cw.header.Count%progressEvery == 0 {
		cw.opts.Logger.Info("catalog progress", "catalog", cw.name, "entries", cw.header.Count)
	}
	return nil
}

// Count returns the number of entries added so far.
func (cw *CatalogWriter) Count() int64 {
	return cw.header.Count
}

func (cw *CatalogWriter) flush() error {
	cw.pending = 0
	if err := cw.w.Flush(); err != nil {
		return fmt.Errorf("catalog: flush: %w", err)
	}
	if cw.opts.SyncWrites {
		return cw.f.Sync()
	}
	return nil
}

// Close flushes pending entries, records the final count in the header and
// releases the lock and file handles.
func (cw *CatalogWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	var result *multierror.Error
	if err := cw.flush(); err != nil {
		result = multierror.Append(result, err)
	}

	cw.header.Timestamp = now()
	buf, err := cw.header.encode()
	if err == nil {
		_, err = cw.f.WriteAt(buf, 0)
	}
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("catalog: header: %w", err))
	}
	if err := cw.f.Sync(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := cw.lock.Unlock(); err != nil {
		result = multierror.Append(result, err)
	}
	cw.lock.setFile(nil)
	if err := cw.f.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := cw.root.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	cw.opts.Logger.Info("catalog written", "catalog", cw.name, "entries", cw.header.Count)
	return result.ErrorOrNil()
}

// WriteCatalog writes one entry per record to cw, in order. source is used
// for fallback titles.
func (p *Parser) WriteCatalog(cw *CatalogWriter, source string, records []RecordIndex) error {
	for i, ri := range records {
		if err := cw.Add(p.Entry(ri, source, i+1)); err != nil {
			return err
		}
	}
	return nil
}
