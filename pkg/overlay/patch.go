package overlay

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ExportPatch emits a unified-diff-like stream, one block per change. Per
// spec.md §9's documented open question, this stays intentionally coarse:
// each block is the entire old file as one removed line followed by the
// entire new file as one added line, not a minimal LCS hunk. That is
// achieved by handing go-difflib a single pseudo-"line" per side (the
// whole file content) instead of splitting on newlines — with nothing
// finer to match, the library's own algorithm degenerates to exactly the
// whole-old/whole-new hunk the source behavior describes, so the coarse
// format comes from the real diff library rather than hand-rolled hunk
// formatting.
func ExportPatch(changes []Change) (string, error) {
	var out strings.Builder
	for _, c := range changes {
		block, err := exportOne(c)
		if err != nil {
			return "", err
		}
		out.WriteString(block)
	}
	return out.String(), nil
}

func exportOne(c Change) (string, error) {
	fromFile, toFile := "a"+c.Path, "b"+c.Path
	header := fmt.Sprintf("diff --git %s %s\n", fromFile, toFile)
	var a, b []string
	switch c.Kind {
	case ChangeAdded:
		fromFile = "/dev/null"
		b = []string{string(c.NewContent)}
	case ChangeDeleted:
		toFile = "/dev/null"
		a = []string{string(c.OldContent)}
	default:
		a = []string{string(c.OldContent)}
		b = []string{string(c.NewContent)}
	}

	diff := difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  0,
		Eol:      "\n",
	}
	body, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return header + body, nil
}
