package model

// Label is a single line-item text from the statement template. Labels are
// immutable once extracted; duplicates are allowed and each occurrence gets
// its own mapping row.
type Label struct {
	Raw        string
	Normalized string
	Category   Category
}
