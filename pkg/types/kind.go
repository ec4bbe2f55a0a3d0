package types

// Kind is the classification of a locator.
type Kind int

// Resource kinds. KindUnknown is never returned by a successful
// classification.
const (
	KindUnknown Kind = iota
	KindCollection
	KindItem
	KindLiveView
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCollection:
		return "collection"
	case KindItem:
		return "item"
	case KindLiveView:
		return "live"
	default:
		return "unknown"
	}
}

// Resource is a classified locator. ID is set only for KindItem, whose
// Locator is always the canonical ItemLocator(ID).
type Resource struct {
	Kind    Kind
	ID      int64
	Locator string
}

// Operations gated by resource kind.
const (
	OpQuery  = "query"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)
