package ir

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ConstPool interns constants by a content digest. Index 0 is reserved, as
// in the class-file format.
type ConstPool struct {
	entries []Constant
	index   map[uint64][]int
}

func NewConstPool() *ConstPool {
	return &ConstPool{entries: []Constant{{}}, index: make(map[uint64][]int)}
}

func constKey(c Constant) string {
	return c.Type.Descriptor() + "\x00" + fmt.Sprintf("%#v", c.Value)
}

// Index returns the pool index of c, adding it on first use.
func (p *ConstPool) Index(c Constant) int {
	key := constKey(c)
	h := xxhash.Sum64String(key)
	for _, i := range p.index[h] {
		if constKey(p.entries[i]) == key {
			return i
		}
	}
	p.entries = append(p.entries, c)
	i := len(p.entries) - 1
	p.index[h] = append(p.index[h], i)
	return i
}

func (p *ConstPool) Len() int { return len(p.entries) - 1 }

func (p *ConstPool) At(i int) Constant { return p.entries[i] }
