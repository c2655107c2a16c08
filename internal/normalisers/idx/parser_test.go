package idx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndex = `Description:           Daily Index of EDGAR Dissemination Feed by Company Name
Last Data Received:    Jan 02, 2024
Comments:              webmaster@sec.gov
Anonymous FTP:         ftp://ftp.sec.gov/edgar/

CIK|Company Name|Form Type|Date Filed|File Name
--------------------------------------------------------------------------------
1000045|NICHOLAS FINANCIAL INC|4|20240102|edgar/data/1000045/0001000045-24-000001.txt
1234567|DOE JOHN|4|20240102|edgar/data/1234567/0001000045-24-000001.txt
this line is malformed
1318605|Tesla, Inc.|8-K|20240102|edgar/data/1318605/0001318605-24-000002.txt
`

func TestParse(t *testing.T) {
	refs := Parse(sampleIndex)

	require.Len(t, refs, 3)
	assert.Equal(t, "0001000045-24-000001", refs[0].FilingID)
	assert.Equal(t, "1000045", refs[0].CIK)
	assert.Equal(t, "NICHOLAS FINANCIAL INC", refs[0].CompanyName)
	assert.Equal(t, "4", refs[0].FormType)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), refs[0].FiledDate)
	assert.Equal(t, "edgar/data/1000045/0001000045-24-000001.txt", refs[0].Path)
	assert.Empty(t, refs[0].Action)

	// Same filing listed under the reporting owner keeps its order.
	assert.Equal(t, "0001000045-24-000001", refs[1].FilingID)
	assert.Equal(t, "1234567", refs[1].CIK)
	assert.Equal(t, "8-K", refs[2].FormType)
}

func TestParse_SkipsHeaderWithPipes(t *testing.T) {
	// The column header has the right field count but precedes the dashes.
	refs := Parse("CIK|Company Name|Form Type|Date Filed|File Name\n----\n")
	assert.Empty(t, refs)
}

func TestParse_NoTerminator(t *testing.T) {
	refs := Parse("1|A|4|20240102|edgar/data/1/x.txt\n")
	assert.Empty(t, refs)
}

func TestParse_WrongFieldCount(t *testing.T) {
	text := "---\n1|A|4|20240102\n1|A|4|20240102|p/x.txt|extra\n2|B|4|20240102|p/y.txt\n"
	refs := Parse(text)
	require.Len(t, refs, 1)
	assert.Equal(t, "y", refs[0].FilingID)
}

func TestParse_CRLFAndDashedDates(t *testing.T) {
	text := "header\r\n-----\r\n1|A|4|2024-03-01|edgar/data/1/0000000001-24-000009.txt\r\n"
	refs := Parse(text)
	require.Len(t, refs, 1)
	assert.Equal(t, "0000000001-24-000009", refs[0].FilingID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), refs[0].FiledDate)
}

func TestParse_UnreadableDateKeepsReference(t *testing.T) {
	text := "---\n1|A|4|2024-13-45|edgar/data/1/x.txt\n2|B|4||edgar/data/2/y.txt\n"
	refs := Parse(text)

	require.Len(t, refs, 2)
	assert.Equal(t, "x", refs[0].FilingID)
	assert.True(t, refs[0].FiledDate.IsZero())
	assert.Equal(t, "y", refs[1].FilingID)
	assert.True(t, refs[1].FiledDate.IsZero())
}

func TestFilingID_IsLastSegmentWithoutExtension(t *testing.T) {
	paths := []string{
		"edgar/data/1/0000000001-24-000001.txt",
		"edgar/data/22/abc.def.txt",
		"noext",
		"a/b/c/d.idx",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			id := FilingID(p)
			segment := p[strings.LastIndex(p, "/")+1:]
			if dot := strings.LastIndex(segment, "."); dot >= 0 {
				segment = segment[:dot]
			}
			assert.Equal(t, segment, id)

			refs := Parse("---\n9|N|4|20240102|" + p + "\n")
			require.Len(t, refs, 1)
			assert.Equal(t, segment, refs[0].FilingID)
		})
	}
}

func TestDateFromFileName(t *testing.T) {
	d, ok := DateFromFileName("master.20240315.idx")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)

	for _, name := range []string{"form.20240315.idx", "master.2024031.idx", "master.20241399.idx", "index.json"} {
		_, ok := DateFromFileName(name)
		assert.False(t, ok, name)
	}
}
