package datagrid

// FormField is one field registered on a form.
type FormField struct {
	Name    string
	Type    string
	Options map[string]any
}

// FormBuilder collects the fields a datagrid form exposes. Rendering is left
// to the hosting integration.
type FormBuilder struct {
	fields []FormField
	index  map[string]int
}

func NewFormBuilder() *FormBuilder {
	return &FormBuilder{index: make(map[string]int)}
}

// Add registers a field, replacing one with the same name.
func (b *FormBuilder) Add(name, typ string, options map[string]any) *FormBuilder {
	field := FormField{Name: name, Type: typ, Options: options}
	if i, ok := b.index[name]; ok {
		b.fields[i] = field
		return b
	}
	b.index[name] = len(b.fields)
	b.fields = append(b.fields, field)
	return b
}

func (b *FormBuilder) Has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Form returns a form with the fields registered so far.
func (b *FormBuilder) Form() *Form {
	return &Form{fields: append([]FormField(nil), b.fields...)}
}

// Form holds the submitted data for a fixed set of fields.
type Form struct {
	fields []FormField
	data   map[string]any
	bound  bool
}

// Bind keeps the values of known fields and drops the rest.
func (f *Form) Bind(submitted map[string]any) {
	f.data = make(map[string]any, len(f.fields))
	for _, field := range f.fields {
		f.data[field.Name] = submitted[field.Name]
	}
	f.bound = true
}

func (f *Form) IsBound() bool {
	return f.bound
}

func (f *Form) Fields() []FormField {
	return f.fields
}

// Get returns the bound value of a field.
func (f *Form) Get(name string) any {
	return f.data[name]
}

// Data returns a copy of the bound values.
func (f *Form) Data() map[string]any {
	out := make(map[string]any, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out
}
