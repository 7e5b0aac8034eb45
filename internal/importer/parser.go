// Package importer reads the plain-text case export used to seed the case
// store. Cases are separated by a line of "=" characters; each case carries
// a category line and dash-delimited sections:
//
//	CATEGORÍA: Comisiones
//	--- PROBLEMA ---
//	Actualizar valores de comisión
//	--- SOLUCIÓN TÉCNICA (SQL) ---
//	UPDATE ... WHERE CreditNumber = '[CREDITO]';
//	TIEMPO: 5 min
//	--- SOLUCIÓN ---
//	Se actualizaron los valores.
package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"pqrs/internal/domain"
)

// DefaultCategory is assigned to blocks without a category line.
const DefaultCategory = "General"

var (
	separatorRe = regexp.MustCompile(`(?m)^[ \t]*={3,}[ \t]*$`)
	categoryRe  = regexp.MustCompile(`CATEGOR[ÍI]A:[ \t]*(.+)`)
	problemRe   = regexp.MustCompile(`(?s)--- PROBLEMA ---\s*(.+?)\s*---`)
	queryRe     = regexp.MustCompile(`(?s)--- SOLUCI[ÓO]N T[ÉE]CNICA.*?---\s*(.+?)\s*(?:TIEMPO:|ESTADO:|--- SOLUCI[ÓO]N ---|$)`)
	responseRe  = regexp.MustCompile(`(?s)--- SOLUCI[ÓO]N ---\s*(.+?)\s*(?:---|$)`)
	markerRe    = regexp.MustCompile(`--- (?:PROBLEMA|SOLUCI[ÓO]N)`)
)

// SkippedBlock is a block that looked like a case but could not be used.
type SkippedBlock struct {
	// Index is the zero-based position of the block in the file.
	Index  int
	Reason string
}

// Result holds the parsed cases in file order and the blocks left out.
type Result struct {
	Cases   []domain.NewCase
	Skipped []SkippedBlock
}

// Parse reads an export and returns every block that has both a problem and
// a query template. Blocks without any section marker (headers, blank runs)
// are ignored silently; blocks with markers but missing a required section
// are reported in Skipped.
func Parse(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read import: %w", err)
	}
	var res Result
	for i, block := range separatorRe.Split(string(data), -1) {
		if !markerRe.MatchString(block) {
			continue
		}
		c, reason := parseBlock(block)
		if reason != "" {
			res.Skipped = append(res.Skipped, SkippedBlock{Index: i, Reason: reason})
			continue
		}
		res.Cases = append(res.Cases, c)
	}
	return res, nil
}

func parseBlock(block string) (domain.NewCase, string) {
	c := domain.NewCase{
		Category:         firstGroup(categoryRe, block),
		ProblemText:      firstGroup(problemRe, block),
		QueryTemplate:    firstGroup(queryRe, block),
		ResponseTemplate: firstGroup(responseRe, block),
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	switch {
	case c.ProblemText == "":
		return c, "missing problem section"
	case c.QueryTemplate == "":
		return c, "missing technical solution section"
	}
	return c, ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
