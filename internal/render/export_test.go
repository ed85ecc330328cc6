package render

// WithTemplate replaces the named template with text.
func WithTemplate(name, text string) Options {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = make(map[string]string)
		}
		o.overrides[name] = text
	}
}
