// Catalog reader.
//
// An open Catalog reads entries straight from the file; only the header and
// a bloom filter over entry ids are kept in memory. Every read takes a shared
// OS lock, so a reader never sees a catalog while a writer is rebuilding it.
package ldt

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"sync"

	json "github.com/goccy/go-json"
)

// Catalog is an open catalog file.
type Catalog struct {
	root   *os.Root
	name   string
	f      *os.File
	lock   *fileLock
	header *Header
	filter *bloom
	opts   CatalogOptions
	mu     sync.RWMutex
	closed bool
}

// OpenCatalog opens the catalog name inside dir for reading.
func OpenCatalog(dir, name string, opts CatalogOptions) (*Catalog, error) {
	opts.defaults()

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	f, err := root.Open(name)
	if err != nil {
		root.Close()
		return nil, err
	}

	c := &Catalog{root: root, name: name, f: f, lock: &fileLock{f: f}, opts: opts}
	if err := c.load(); err != nil {
		f.Close()
		root.Close()
		return nil, err
	}
	return c, nil
}

// load reads the header and fills the bloom filter.
func (c *Catalog) load() error {
	if err := c.lock.Lock(LockShared); err != nil {
		return err
	}
	defer c.lock.Unlock()

	hdr, err := readHeader(c.f)
	if err != nil {
		return err
	}
	c.header = hdr
	c.filter = newBloom(hdr.Count)

	var n int64
	for e, err := range c.entries() {
		if err != nil {
			return err
		}
		c.filter.Add(e.ID)
		n++
	}
	if n != hdr.Count {
		return fmt.Errorf("%w: header counts %d entries, found %d", ErrCorruptCatalog, hdr.Count, n)
	}
	return nil
}

// Header returns a copy of the catalog header.
func (c *Catalog) Header() Header {
	return *c.header
}

// Count returns the number of entries.
func (c *Catalog) Count() int64 {
	return c.header.Count
}

// Get returns the first entry titled title.
func (c *Catalog) Get(title string) (Entry, error) {
	if err := c.acquire(); err != nil {
		return Entry{}, err
	}
	defer c.release()

	id := entryID(title, c.header.Algorithm)
	if !c.filter.Contains(id) {
		return Entry{}, ErrNotFound
	}
	for e, err := range c.entries() {
		if err != nil {
			return Entry{}, err
		}
		if e.ID == id && e.Title == title {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Close releases the file handles.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.lock.setFile(nil)
	err := c.f.Close()
	if rerr := c.root.Close(); err == nil {
		err = rerr
	}
	return err
}

// acquire takes the in-process read lock and the shared file lock.
func (c *Catalog) acquire() error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	if err := c.lock.Lock(LockShared); err != nil {
		c.mu.RUnlock()
		return err
	}
	return nil
}

func (c *Catalog) release() {
	c.lock.Unlock()
	c.mu.RUnlock()
}

// entries decodes every entry line after the header. Callers hold the lock.
func (c *Catalog) entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		info, err := c.f.Stat()
		if err != nil {
			yield(Entry{}, fmt.Errorf("catalog: stat: %w", err))
			return
		}
		section := io.NewSectionReader(c.f, HeaderSize, info.Size()-HeaderSize)
		scanner := bufio.NewScanner(section)
		scanner.Buffer(make([]byte, c.opts.ReadBuffer), c.opts.MaxEntrySize)

		line := 0
		for scanner.Scan() {
			line++
			data := scanner.Bytes()
			if len(data) == 0 {
				continue
			}
			var e Entry
			if err := json.Unmarshal(data, &e); err != nil {
				yield(Entry{}, fmt.Errorf("%w: entry %d: %w", ErrCorruptCatalog, line, err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Entry{}, err)
		}
	}
}
