package export

// Table defines tabular export content, one row map per record keyed by header.
type Table struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}
