// Package submission splits a raw archive submission into its embedded
// documents and reads the filing parties from its header.
package submission

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

var (
	documentPattern    = regexp.MustCompile(`(?s)<DOCUMENT>(.*?)</DOCUMENT>`)
	typePattern        = regexp.MustCompile(`<TYPE>([^\r\n<]*)`)
	sequencePattern    = regexp.MustCompile(`<SEQUENCE>([^\r\n<]*)`)
	descriptionPattern = regexp.MustCompile(`<DESCRIPTION>([^\r\n<]*)`)
	fileNamePattern    = regexp.MustCompile(`<FILENAME>([^\r\n<]*)`)
	textPattern        = regexp.MustCompile(`(?s)<TEXT>(.*?)</TEXT>`)
)

// payloadMarker is a structured-content wrapper, checked in order.
type payloadMarker struct {
	format  domain.DocumentFormat
	pattern *regexp.Regexp
}

var payloadMarkers = []payloadMarker{
	{domain.FormatXML, regexp.MustCompile(`(?s)<XML>(.*?)</XML>`)},
	{domain.FormatPDF, regexp.MustCompile(`(?s)<PDF>(.*?)</PDF>`)},
	{domain.FormatXBRL, regexp.MustCompile(`(?s)<XBRL>(.*?)</XBRL>`)},
}

// Extract returns every embedded document of a raw submission in order.
// A submission without document blocks yields an empty slice.
func Extract(raw string) []domain.EmbeddedDocument {
	blocks := documentPattern.FindAllStringSubmatch(raw, -1)
	docs := make([]domain.EmbeddedDocument, 0, len(blocks))
	for _, block := range blocks {
		docs = append(docs, extractBlock(block[1]))
	}
	return docs
}

func extractBlock(block string) domain.EmbeddedDocument {
	doc := domain.EmbeddedDocument{
		Type:        tag(typePattern, block),
		Description: tag(descriptionPattern, block),
		FileName:    tag(fileNamePattern, block),
	}
	if seq, err := strconv.Atoi(tag(sequencePattern, block)); err == nil {
		doc.Sequence = seq
	}

	doc.Format, doc.Content = payload(block)
	doc.Content = strings.TrimSpace(doc.Content)
	doc.Size = len(doc.Content)
	return doc
}

// payload detects the payload format. Structured markers win in priority
// order; otherwise the <TEXT> body is used, and failing that the whole block.
func payload(block string) (domain.DocumentFormat, string) {
	for _, marker := range payloadMarkers {
		if m := marker.pattern.FindStringSubmatch(block); m != nil {
			return marker.format, m[1]
		}
	}
	if m := textPattern.FindStringSubmatch(block); m != nil {
		return domain.FormatOther, m[1]
	}
	return domain.FormatOther, block
}

func tag(pattern *regexp.Regexp, block string) string {
	m := pattern.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
