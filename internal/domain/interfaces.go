package domain

import "context"

// Case is a previously solved ticket used as a retrieval unit.
type Case struct {
	ID               int64  `db:"id"`
	Category         string `db:"categoria"`
	ProblemText      string `db:"problema"`
	QueryTemplate    string `db:"sql"`
	ResponseTemplate string `db:"respuesta"`
	UsageCount       int    `db:"usos"`
	Effectiveness    int    `db:"efectividad"`
	KeyConcepts      string `db:"conceptos_clave"`
	Complexity       int    `db:"complejidad"`
}

// NewCase carries the authored fields of a case before it gets an ID.
type NewCase struct {
	Category         string
	ProblemText      string
	QueryTemplate    string
	ResponseTemplate string
	KeyConcepts      string
}

// RankedMatch is a case with its similarity to a query.
type RankedMatch struct {
	Case  Case
	Score float64
}

// Statement is a query template with bound values moved out into bind
// arguments. Missing lists placeholders that had no value and were left as is.
type Statement struct {
	Text    string
	Args    []any
	Missing []string
}

// Resolution is the answer to a problem description.
type Resolution struct {
	Case   Case
	Score  float64
	Params map[string]string
	// BoundQuery is the template with values pasted in literally. It is a
	// suggestion for a human to review, never something to execute.
	BoundQuery   string
	Statement    Statement
	ResponseText string
}

// Embedder converts free text into a numeric vector representation.
// Version identifies the model (and any corpus-derived state) that produced
// a vector; vectors from different versions are not comparable.
type Embedder interface {
	Name() string
	Version() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CaseLister is the read side of the case store.
type CaseLister interface {
	ListCases(ctx context.Context) ([]Case, error)
}

// CaseStore persists solved cases.
type CaseStore interface {
	CaseLister
	AddCase(ctx context.Context, c NewCase) (int64, error)
	Count(ctx context.Context) (int, error)
	IncrementUsage(ctx context.Context, id int64) error
}
