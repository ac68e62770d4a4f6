package redact

import "sort"

// amountRegistry maps a row key to the indices of the amount fragments
// starting on that row. In overwrite mode a later amount on the same key
// replaces the earlier one, so only one amount per row is ever tracked.
type amountRegistry struct {
	mode RegistryMode
	rows map[int][]int
}

func newAmountRegistry(mode RegistryMode) *amountRegistry {
	return &amountRegistry{mode: mode, rows: make(map[int][]int)}
}

func (r *amountRegistry) add(key, fragment int) {
	if r.mode == RegistryMulti {
		r.rows[key] = append(r.rows[key], fragment)
		return
	}
	r.rows[key] = []int{fragment}
}

// release drops every amount whose key lies within tolerance of key
func (r *amountRegistry) release(key, tolerance int) {
	for k := key - tolerance; k <= key+tolerance; k++ {
		delete(r.rows, k)
	}
}

func (r *amountRegistry) len() int {
	n := 0
	for _, v := range r.rows {
		n += len(v)
	}
	return n
}

// remaining returns the tracked fragment indices ordered by row key
func (r *amountRegistry) remaining() []int {
	keys := make([]int, 0, len(r.rows))
	for k := range r.rows {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var out []int
	for _, k := range keys {
		out = append(out, r.rows[k]...)
	}
	return out
}

func (r *amountRegistry) clone() *amountRegistry {
	c := newAmountRegistry(r.mode)
	for k, v := range r.rows {
		c.rows[k] = append([]int(nil), v...)
	}
	return c
}
