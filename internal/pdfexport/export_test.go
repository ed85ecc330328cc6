package pdfexport

// WithoutCompression disables stream compression so text can be found in the raw document.
func WithoutCompression(o Options) Options {
	o.noCompress = true
	return o
}
