package worklist

import "github.com/ismrmrd/dicomweb-gateway/dataset"

// Cursor hands out worklist results one at a time. It is fully populated at
// construction and never fetches more results.
type Cursor struct {
	results []*dataset.Dataset
}

func NewCursor(results []*dataset.Dataset) *Cursor {
	return &Cursor{results: append([]*dataset.Dataset(nil), results...)}
}

func (c *Cursor) HasMore() bool {
	return len(c.results) > 0
}

// Next pops the next result. ok is false once the cursor is exhausted.
func (c *Cursor) Next() (result *dataset.Dataset, ok bool) {
	if len(c.results) == 0 {
		return nil, false
	}
	result = c.results[0]
	c.results[0] = nil
	c.results = c.results[1:]
	return result, true
}

func (c *Cursor) Remaining() int {
	return len(c.results)
}
