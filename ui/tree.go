package ui

import (
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/mattn/go-runewidth"
)

// Tree connectors
const (
	TreeBranch     = "├── "
	TreeLastBranch = "└── "
	TreeContinue   = "│   "
	TreeIndent     = "    "
)

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// BuildTreePrefix returns the connector drawn in front of a node at depth.
// ancestorsLast holds, for every ancestor between the top level and the node's
// parent, whether it was the last of its siblings.
func BuildTreePrefix(depth int, isLast bool, ancestorsLast []bool) string {
	if depth <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(ancestorsLast) && ancestorsLast[i] {
			b.WriteString(TreeIndent)
		} else {
			b.WriteString(TreeContinue)
		}
	}
	if isLast {
		b.WriteString(TreeLastBranch)
	} else {
		b.WriteString(TreeBranch)
	}
	return b.String()
}

// DisplayWidth is the number of terminal cells s occupies, ignoring colour codes
func DisplayWidth(s string) int {
	return runewidth.StringWidth(stripansi.Strip(s))
}

// Box renders lines inside a bordered box with a title row. The box is at least
// width cells wide and grows to fit the title; longer lines are truncated.
type Box struct {
	Title string
	Width int
	lines []string
}

// NewBox creates an empty box
func NewBox(title string, width int) *Box {
	if minWidth := DisplayWidth(title) + 4; width < minWidth {
		width = minWidth
	}
	return &Box{Title: title, Width: width}
}

// AddLine appends a content line
func (b *Box) AddLine(content string) {
	b.lines = append(b.lines, content)
}

// String renders the box
func (b *Box) String() string {
	var sb strings.Builder
	sb.WriteString(BuildBoxHeader(b.Title, b.Width))
	for _, line := range b.lines {
		sb.WriteString(BuildBoxLine(line, b.Width))
	}
	sb.WriteString(BuildBoxFooter(b.Width))
	return sb.String()
}

// BuildBoxHeader creates the top border, title row and separator of a box
func BuildBoxHeader(title string, width int) string {
	if minWidth := DisplayWidth(title) + 4; width < minWidth {
		width = minWidth
	}
	inner := strings.Repeat(BoxHorizontal, width-2)
	return BoxTopLeft + inner + BoxTopRight + "\n" +
		BuildBoxLine(title, width) +
		BoxTeeRight + inner + BoxTeeLeft + "\n"
}

// BuildBoxFooter creates the bottom border of a box
func BuildBoxFooter(width int) string {
	if width < 2 {
		width = 2
	}
	return BoxBottomLeft + strings.Repeat(BoxHorizontal, width-2) + BoxBottomRight + "\n"
}

// BuildBoxLine creates a content row, padded or truncated to the box width
func BuildBoxLine(content string, width int) string {
	maxWidth := width - 4 // "│ " and " │"
	if maxWidth < 0 {
		maxWidth = 0
	}
	if DisplayWidth(content) > maxWidth {
		content = runewidth.Truncate(stripansi.Strip(content), maxWidth, "...")
	}
	padding := maxWidth - DisplayWidth(content)
	return BoxVertical + " " + content + strings.Repeat(" ", padding) + " " + BoxVertical + "\n"
}
