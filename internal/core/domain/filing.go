package domain

import (
	"strings"
	"time"
)

// FilingAction is the pending action assigned to a discovered filing.
type FilingAction string

const (
	// ActionNone is the zero action, before deduplication.
	ActionNone FilingAction = ""

	// ActionCreate marks a filing that is not yet stored.
	ActionCreate FilingAction = "create"

	// ActionUpdate marks an amendment of a stored filing with an older filed date.
	ActionUpdate FilingAction = "update"

	// ActionSkip marks a filing that is already stored and current.
	ActionSkip FilingAction = "skip"
)

// FilingReference is one filing discovered in a daily index listing.
// It only lives for the duration of the run that produced it.
type FilingReference struct {
	// FilingID is the accession identifier derived from the submission path.
	FilingID string

	// CIK is the central index key of the index line (issuer or reporting owner).
	CIK string

	// CompanyName is the filer name from the index line.
	CompanyName string

	// FormType is the declared form type, e.g. "4" or "4/A".
	FormType string

	// FiledDate is the filed date at day precision, UTC.
	FiledDate time.Time

	// Path is the remote submission path relative to the archive root.
	Path string

	// Action is assigned by the deduplicator.
	Action FilingAction

	// StoredFiledDate is the filed date already stored when Action is
	// ActionUpdate, zero otherwise.
	StoredFiledDate time.Time
}

// DocumentFormat classifies the payload of an embedded document.
type DocumentFormat string

// Known document formats.
const (
	FormatXML   DocumentFormat = "xml"
	FormatPDF   DocumentFormat = "pdf"
	FormatXBRL  DocumentFormat = "xbrl"
	FormatOther DocumentFormat = "other"
)

// EmbeddedDocument is one document section extracted from a raw submission.
type EmbeddedDocument struct {
	// Type is the declared <TYPE> of the section.
	Type string `json:"type"`

	// Sequence is the declared <SEQUENCE> number.
	Sequence int `json:"sequence"`

	// Description is the optional <DESCRIPTION>.
	Description string `json:"description,omitempty"`

	// FileName is the optional <FILENAME>.
	FileName string `json:"fileName,omitempty"`

	// Format is the detected payload format.
	Format DocumentFormat `json:"format"`

	// Content is the trimmed payload.
	Content string `json:"content"`

	// Size is the payload length in bytes.
	Size int `json:"size"`
}

// OwnershipFiling is a stored ownership filing, one per filing identifier.
type OwnershipFiling struct {
	// ID is the accession identifier. It is never regenerated.
	ID string

	// FormType is the declared form type.
	FormType string

	// FiledDate is the filed date at day precision, UTC.
	FiledDate time.Time

	// IngestedAt is set once, the first time the filing is stored.
	IngestedAt time.Time

	// UpdatedAt is the last time the stored row was written.
	UpdatedAt time.Time

	// SourcePath is the remote submission path.
	SourcePath string

	// IssuerCIK identifies the issuer of the securities.
	IssuerCIK string

	// IssuerName is the issuer's display name.
	IssuerName string

	// OwnerCIKs identifies the reporting owners.
	OwnerCIKs []string

	// Documents are the embedded documents of the submission.
	Documents []EmbeddedDocument

	// FormData is the parsed form, or nil when parsing could not complete.
	FormData *OwnershipForm
}

// PrimaryDocument returns the XML document whose declared type matches the
// filing's form type, or nil if there is none.
func (f *OwnershipFiling) PrimaryDocument() *EmbeddedDocument {
	for i := range f.Documents {
		doc := &f.Documents[i]
		if doc.Format == FormatXML && strings.EqualFold(doc.Type, f.FormType) {
			return doc
		}
	}
	return nil
}

// ApplyParties fills issuer and owner identifiers from the parsed form.
// Values already present are only replaced when the form carries them.
func (f *OwnershipFiling) ApplyParties() {
	if f.FormData == nil {
		return
	}
	if cik := f.FormData.Issuer.IssuerCIK; cik != nil && *cik != "" {
		f.IssuerCIK = NormalizeCIK(*cik)
	}
	if name := f.FormData.Issuer.IssuerName; name != nil && *name != "" {
		f.IssuerName = *name
	}
	var owners []string
	for _, owner := range f.FormData.ReportingOwners {
		if cik := owner.ID.CIK; cik != nil && *cik != "" {
			owners = append(owners, NormalizeCIK(*cik))
		}
	}
	if len(owners) > 0 {
		f.OwnerCIKs = owners
	}
}

// DayOf truncates t to its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeCIK strips surrounding space and leading zeros so keys from
// index lines, headers and form XML compare equal.
func NormalizeCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	trimmed := strings.TrimLeft(cik, "0")
	if trimmed == "" && cik != "" {
		return "0"
	}
	return trimmed
}

// NormalizeCIKs applies NormalizeCIK to every element.
func NormalizeCIKs(ciks []string) []string {
	if len(ciks) == 0 {
		return nil
	}
	out := make([]string, 0, len(ciks))
	for _, cik := range ciks {
		out = append(out, NormalizeCIK(cik))
	}
	return out
}
