// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DocumentType categorizes an internal R&D document.
type DocumentType string

const (
	DocReport   DocumentType = "report"
	DocProtocol DocumentType = "protocol"
	DocStudy    DocumentType = "study"
	DocMemo     DocumentType = "memo"
	DocOther    DocumentType = "other"
)

// DocumentTypes lists the recognized document types.
var DocumentTypes = []DocumentType{DocReport, DocProtocol, DocStudy, DocMemo, DocOther}

// Document is an internal R&D record held in the knowledge base.
type Document struct {
	// ID is unique across the knowledge base (e.g. "RD-2023-014").
	ID string `json:"id" yaml:"id"`

	Title string       `json:"title" yaml:"title"`
	Type  DocumentType `json:"type" yaml:"type"`

	// Content is the searchable body text.
	Content string `json:"content" yaml:"content"`

	// Source names the originating system or team.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Molecules lists the drugs the document concerns.
	Molecules []string `json:"molecules,omitempty" yaml:"molecules,omitempty"`

	Tags []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`
}

// DocumentFile is the on-disk YAML layout: one file holds a batch of
// documents, ingested and replaced as a unit.
type DocumentFile struct {
	Documents []Document `json:"documents" yaml:"documents"`
}
