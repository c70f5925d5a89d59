package catalog

import (
	"cruise-booking/internal/model"
)

// staticCatalog implements Catalog with id and slug indexes for O(1) lookups.
type staticCatalog struct {
	products []model.Product
	index    map[string]int
}

// New builds a catalog from products. Later entries never shadow an earlier
// id or slug.
func New(products []model.Product) Catalog {
	c := &staticCatalog{
		products: make([]model.Product, 0, len(products)),
		index:    make(map[string]int, len(products)*2),
	}
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, dup := c.index[p.ID]; dup {
			continue
		}
		c.products = append(c.products, p)
		pos := len(c.products) - 1
		c.index[p.ID] = pos
		if p.Slug != "" {
			if _, taken := c.index[p.Slug]; !taken {
				c.index[p.Slug] = pos
			}
		}
	}
	return c
}

func (c *staticCatalog) Find(key string) (*model.Product, bool) {
	pos, ok := c.index[key]
	if !ok {
		return nil, false
	}
	p := c.products[pos]
	return &p, true
}

func (c *staticCatalog) All() []model.Product {
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *staticCatalog) Size() int {
	return len(c.products)
}
