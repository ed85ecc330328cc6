package cli

// SetSlogTo is SetSlog writing to w.
var SetSlogTo = setSlog
