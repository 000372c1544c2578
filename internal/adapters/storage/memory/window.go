// Package memory implementa los repositorios en memoria, usados en dev y en tests.
package memory

// window aplica offset/limit sobre una lista ya ordenada.
func window[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
