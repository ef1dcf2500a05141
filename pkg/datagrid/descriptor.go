package datagrid

// SortFieldMapping names the index field a column sorts on.
type SortFieldMapping struct {
	FieldName string
}

// FieldDescriptor describes a listing column.
type FieldDescriptor interface {
	Name() string
	IsSortable() bool
	SortFieldMapping() SortFieldMapping
	// SortParentAssociationMapping is the association path leading to the
	// sort field, outermost first.
	SortParentAssociationMapping() []string
}

// Column is the stock FieldDescriptor.
type Column struct {
	name     string
	label    string
	sortable bool
	field    string
	parents  []string
}

// NewColumn creates a column. An empty field sorts on the column name.
func NewColumn(name, label string, sortable bool, field string, parents ...string) *Column {
	if field == "" {
		field = name
	}
	if label == "" {
		label = name
	}
	return &Column{name: name, label: label, sortable: sortable, field: field, parents: parents}
}

func (c *Column) Name() string     { return c.name }
func (c *Column) Label() string    { return c.label }
func (c *Column) IsSortable() bool { return c.sortable }

func (c *Column) SortFieldMapping() SortFieldMapping {
	return SortFieldMapping{FieldName: c.field}
}

func (c *Column) SortParentAssociationMapping() []string {
	return c.parents
}

// Columns is an ordered collection of field descriptors.
type Columns struct {
	order  []string
	byName map[string]FieldDescriptor
}

func NewColumns(descriptors ...FieldDescriptor) *Columns {
	c := &Columns{byName: make(map[string]FieldDescriptor)}
	for _, d := range descriptors {
		c.Add(d)
	}
	return c
}

func (c *Columns) Add(d FieldDescriptor) {
	if _, exists := c.byName[d.Name()]; !exists {
		c.order = append(c.order, d.Name())
	}
	c.byName[d.Name()] = d
}

func (c *Columns) Get(name string) (FieldDescriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

func (c *Columns) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *Columns) Remove(name string) {
	if _, ok := c.byName[name]; !ok {
		return
	}
	delete(c.byName, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Columns) Elements() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

func (c *Columns) Len() int {
	return len(c.order)
}
