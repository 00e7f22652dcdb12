package reporting

import (
	"strings"

	"github.com/ethereum-optimism/infra/op-spec/runner"
)

// FormatList renders listing mode output: one full path per line, with
// " (pending)" after pending cases
func FormatList(cases []runner.ListedCase) string {
	var b strings.Builder
	for _, c := range cases {
		b.WriteString(c.Path)
		if c.Pending {
			b.WriteString(" (pending)")
		}
		b.WriteString("\n")
	}
	return b.String()
}
