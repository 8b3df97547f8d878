// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// CSLItem is a bibliography entry in CSL-YAML form, readable by Pandoc and
// reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Number         string    `yaml:"number,omitempty"`
	Authority      string    `yaml:"authority,omitempty"`
}

// CSLName is a person or organization name.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate holds date-parts: year, optionally month and day.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

const usptoAuthority = "United States Patent and Trademark Office"

// usPatentRe matches US patent numbers and publication numbers.
var usPatentRe = regexp.MustCompile(`^US\d`)

// WriteBibliography writes evidence as a CSL-YAML list to w.
func WriteBibliography(w io.Writer, evidence []types.EvidenceItem) error {
	items := make([]CSLItem, 0, len(evidence))
	for _, e := range evidence {
		items = append(items, ToCSLItem(e))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return err
	}
	return enc.Close()
}

// ToCSLItem maps an evidence item to a CSL entry. Patents are typed patent
// with number and authority; trials and regulatory documents become
// reports; literature becomes journal articles.
func ToCSLItem(e types.EvidenceItem) CSLItem {
	item := CSLItem{
		ID:       e.SourceID,
		Title:    e.Title,
		Abstract: e.Abstract,
		URL:      e.SourceURL,
	}
	data := e.ExtractedData

	switch {
	case e.SourceType == types.SourcePatent || usPatentRe.MatchString(e.SourceID):
		item.Type = "patent"
		item.Number = e.SourceID
		if strings.HasPrefix(e.SourceID, "US") {
			item.Authority = usptoAuthority
		}
		for _, a := range stringList(data["assignees"]) {
			item.Author = append(item.Author, CSLName{Literal: a})
		}
		item.Issued = parseDate(stringField(data, "grant_date"))

	case e.SourceType == types.SourceTrial:
		item.Type = "report"
		item.Number = stringField(data, "nct_id")
		item.Publisher = "ClinicalTrials.gov"

	case e.SourceType == types.SourceRegulatory:
		item.Type = "report"
		item.Publisher = stringField(data, "agency")
		item.Issued = parseDate(stringField(data, "effective_time"))
		if item.Issued == nil {
			item.Issued = yearOnly(data["year"])
		}

	case e.SourceType == types.SourceLiterature:
		item.Type = "article-journal"
		for _, a := range stringList(data["authors"]) {
			item.Author = append(item.Author, parseAuthorName(a))
		}
		item.ContainerTitle = stringField(data, "journal")
		if item.ContainerTitle == "" {
			item.ContainerTitle = stringField(data, "venue")
		}
		item.DOI = stringField(data, "doi")
		item.PMID = stringField(data, "pmid")
		item.Issued = parseDate(stringField(data, "pubdate"))
		if item.Issued == nil {
			item.Issued = yearOnly(data["year"])
		}

	default:
		item.Type = "document"
	}

	if item.DOI == "" && strings.HasPrefix(e.SourceID, "10.") {
		item.DOI = e.SourceID
	}
	return item
}

// parseAuthorName splits a full name on the last space: the leading part is
// the given name, the final token the family name. PubMed-style names whose
// last token is initials ("Smith JA") are read family-first. Single tokens
// are literal.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	if last := name[idx+1:]; isInitials(last) {
		return CSLName{Family: name[:idx], Given: last}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

func isInitials(s string) bool {
	if len(s) == 0 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

var dateLayouts = []string{"2006-01-02", "20060102", "2006 Jan 2", "2006 Jan", "2006-01", "2006"}

// parseDate reads the date formats the evidence sources emit and keeps only
// the parts present in the input.
func parseDate(s string) *CSLDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		switch layout {
		case "2006":
			return &CSLDate{DateParts: [][]int{{t.Year()}}}
		case "2006 Jan", "2006-01":
			return &CSLDate{DateParts: [][]int{{t.Year(), int(t.Month())}}}
		default:
			return &CSLDate{DateParts: [][]int{{t.Year(), int(t.Month()), t.Day()}}}
		}
	}
	// PubMed dates such as "2021 Spring" still carry a leading year.
	if len(s) >= 4 {
		if y, err := strconv.Atoi(s[:4]); err == nil {
			return &CSLDate{DateParts: [][]int{{y}}}
		}
	}
	return nil
}

func yearOnly(v any) *CSLDate {
	switch y := v.(type) {
	case int:
		if y > 0 {
			return &CSLDate{DateParts: [][]int{{y}}}
		}
	case float64:
		if y > 0 {
			return &CSLDate{DateParts: [][]int{{int(y)}}}
		}
	case string:
		return parseDate(y)
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// stringList accepts []string, the []any produced by JSON decoding, and
// comma-separated author strings such as "Smith J, Doe A.".
func stringList(v any) []string {
	switch l := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(strings.TrimSuffix(l, "."), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, x := range l {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
