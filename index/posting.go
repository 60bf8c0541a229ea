package index

// PostingEntry represents a document that contains a term, the field it appeared in,
// and how often and where the term occurred in that field.
type PostingEntry struct {
	DocID     uint32  // Internal numeric ID for efficiency
	FieldName string  // The name of the field where the term was found (e.g., "title", "tags")
	Score     float64 // Term frequency within this field for this document
	Positions []int   // Token positions of the term within the field
}

// PostingList is a slice of PostingEntry kept in ascending DocID order.
type PostingList []PostingEntry
