// Package pagination interpreta ?page&size (page base 0) y arma la respuesta paginada.
package pagination

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

var ErrInvalid = errors.New("invalid pagination params")

type Params struct {
	Page int
	Size int
}

func (p Params) Offset() int { return p.Page * p.Size }
func (p Params) Limit() int  { return p.Size }

// Normalize aplica default y tope a size; page negativa pasa a 0.
func (p Params) Normalize() Params {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}
	return p
}

// FromQuery lee page y size. Valores no numéricos son error (400 en el handler).
func FromQuery(q url.Values) (Params, error) {
	p := Params{}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Params{}, ErrInvalid
		}
		p.Page = n
	}
	if v := strings.TrimSpace(q.Get("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Params{}, ErrInvalid
		}
		p.Size = n
	}
	return p.Normalize(), nil
}

// Page es el sobre JSON que devuelven los listados paginados.
type Page[T any] struct {
	Content       []T  `json:"content"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Last          bool `json:"last"`
}

func NewPage[T any](items []T, p Params, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return Page[T]{
		Content:       items,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: total,
		TotalPages:    pages,
		Last:          p.Page >= pages-1,
	}
}

// Slice recorta in-memory según offset/limit.
func Slice[T any](items []T, p Params) []T {
	off := p.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := off + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}
