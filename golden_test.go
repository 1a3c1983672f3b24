package journal_test

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/journal"
)

func TestDescribeGolden(t *testing.T) {
	j := seedJournal(t)

	res, err := journal.ReadRange(j, 0, 10, nil,
		journal.Describe[string, string],
	)
	require.NoError(t, err)

	var out strings.Builder
	for _, line := range res.Items() {
		out.WriteString(line)
		out.WriteByte('\n')
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "describe", []byte(out.String()))
}
