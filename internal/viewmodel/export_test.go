package viewmodel

// WithSectionHook calls hook before each section is built.
func WithSectionHook(hook func(Section)) func(o *options) {
	return func(o *options) {
		o.sectionHook = hook
	}
}
