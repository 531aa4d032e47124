package model

// NodeID is an index into a parsed document's node table (document order)
type NodeID int

// NodeRef is a weak handle to the document node that produced a record or issue.
// It never owns the node and stays valid after the live document is discarded.
type NodeRef struct {
	ID  NodeID `json:"id"`  // Position in the document node table
	Tag string `json:"tag"` // Lower-cased tag name
}

// Category is the coarse semantic bucket of an announcement
type Category string

const (
	CategoryLandmark    Category = "landmark"    // navigation, main, banner, ...
	CategoryHeading     Category = "heading"     // h1-h6 and role=heading
	CategoryInteractive Category = "interactive" // links, buttons, tabs
	CategoryForm        Category = "form"        // text fields, checkboxes, selects
	CategoryContent     Category = "content"     // everything else
)

// AnnouncementRecord is one phrase a screen reader would speak
type AnnouncementRecord struct {
	Index        int      `json:"index"`                    // Discovery order, zero-based and contiguous
	Announcement string   `json:"announcement"`             // The exact spoken phrase
	Category     Category `json:"category"`                 // Derived from the phrase
	Source       *NodeRef `json:"source_element,omitempty"` // Set by the direct scan only
}

// NarratorKind identifies which narrator produced the announcement stream
type NarratorKind string

const (
	NarratorTraversal  NarratorKind = "traversal"
	NarratorDirectScan NarratorKind = "direct_scan"
)

// FallbackReason explains why the direct scan replaced the traversal
type FallbackReason string

const (
	FallbackNone     FallbackReason = ""
	FallbackError    FallbackReason = "traversal_error"
	FallbackEmpty    FallbackReason = "empty_traversal"
	FallbackDisabled FallbackReason = "traversal_disabled"
)
