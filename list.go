// Entry enumeration.
package ldt

import "iter"

// List yields every entry in file order. Break from the range loop to stop
// early; the shared lock is released either way.
func (c *Catalog) List() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if err := c.acquire(); err != nil {
			yield(Entry{}, err)
			return
		}
		defer c.release()

		for e, err := range c.entries() {
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}
