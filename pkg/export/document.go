package export

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a titled table inside a document.
type Section struct {
	Title string
	Data  Dataset
}

// Document is a multi-section export: a title, a key-value summary block and
// any number of tabular sections.
type Document struct {
	Title    string
	Meta     []MetaEntry
	Sections []Section
}

// MetaEntry is one summary line rendered above the tables.
type MetaEntry struct {
	Key   string
	Value string
}
