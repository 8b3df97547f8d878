//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Knowledge groups targets that maintain the internal knowledge base.
type Knowledge mg.Namespace

// Ingest indexes knowledge/documents into the SQLite knowledge base.
func (Knowledge) Ingest() error {
	mg.Deps(Build)
	return sh.RunV("bin/"+binName, "knowledge", "ingest")
}

// Export writes the knowledge base to knowledge/index/export.yaml.
func (Knowledge) Export() error {
	mg.Deps(Build)
	return sh.RunV("bin/"+binName, "knowledge", "export", "--format", "yaml")
}
