package submission

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

var (
	headerPattern = regexp.MustCompile(`(?s)<SEC-HEADER>(.*?)</SEC-HEADER>`)
	cikPattern    = regexp.MustCompile(`CENTRAL INDEX KEY:\s*(\d+)`)
	namePattern   = regexp.MustCompile(`COMPANY CONFORMED NAME:\s*([^\r\n]+)`)
	sectionStart  = regexp.MustCompile(`(?m)^(ISSUER|REPORTING-OWNER|FILER|SUBJECT COMPANY):\s*$`)
)

// Parties are the filer roles named in a submission header.
type Parties struct {
	IssuerCIK  string
	IssuerName string
	OwnerCIKs  []string
}

// ParseHeader reads issuer and reporting-owner keys from the
// <SEC-HEADER> block. Missing sections leave fields empty.
func ParseHeader(raw string) Parties {
	var parties Parties

	m := headerPattern.FindStringSubmatch(raw)
	if m == nil {
		return parties
	}
	header := m[1]

	bounds := sectionStart.FindAllStringSubmatchIndex(header, -1)
	for i, b := range bounds {
		end := len(header)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		role := header[b[2]:b[3]]
		body := header[b[1]:end]

		cik := domain.NormalizeCIK(firstMatch(cikPattern, body))
		if cik == "" {
			continue
		}
		switch role {
		case "ISSUER":
			parties.IssuerCIK = cik
			parties.IssuerName = firstMatch(namePattern, body)
		case "REPORTING-OWNER":
			parties.OwnerCIKs = append(parties.OwnerCIKs, cik)
		}
	}
	return parties
}

func firstMatch(pattern *regexp.Regexp, s string) string {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
