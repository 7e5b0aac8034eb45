package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqrs/internal/domain"
)

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var corpus = []string{
	"Cambiar estado de liquidación de vendedor y concesionario a Aprobados Jefe Coordinador",
	"Actualizar valores de comisión para crédito específico",
}

func TestEmbedder_NotPrepared(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "hola")
	assert.Error(t, err)
}

func TestEmbedder_PrepareErrors(t *testing.T) {
	assert.Error(t, NewEmbedder().Prepare(nil))
	assert.Error(t, NewEmbedder().Prepare([]string{"--- ?!", "  "}))
	assert.NoError(t, NewEmbedder().Prepare([]string{"de la y el"}), "stopword-only text still has terms")
}

func TestEmbedder_SelfSimilarity(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	ctx := context.Background()
	for _, text := range corpus {
		v1, err := e.Embed(ctx, text)
		require.NoError(t, err)
		v2, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, cosine(v1, v2), 1e-9)
		assert.Len(t, v1, e.Dimension())
	}
}

func TestEmbedder_SynonymsAndAccents(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	ctx := context.Background()

	a, err := e.Embed(ctx, "modificar comision del prestamo")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "actualizar comisión del crédito")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cosine(a, b), 1e-9)
}

func TestEmbedder_UnknownTextIsZeroVector(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	v, err := e.Embed(context.Background(), "zzqx wvvy")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbedder_VersionTracksCorpus(t *testing.T) {
	a := NewEmbedder()
	require.NoError(t, a.Prepare(corpus))
	b := NewEmbedder()
	require.NoError(t, b.Prepare(corpus))
	c := NewEmbedder()
	require.NoError(t, c.Prepare(append([]string{"Eliminar factura duplicada"}, corpus...)))

	assert.Equal(t, a.Version(), b.Version())
	assert.NotEqual(t, a.Version(), c.Version())
	assert.Contains(t, a.Version(), "tfidf:")
}

type listerFunc func(ctx context.Context) ([]domain.Case, error)

func (f listerFunc) ListCases(ctx context.Context) ([]domain.Case, error) { return f(ctx) }

func TestLoader(t *testing.T) {
	src := listerFunc(func(context.Context) ([]domain.Case, error) {
		return []domain.Case{{ID: 1, ProblemText: corpus[0]}, {ID: 2, ProblemText: corpus[1]}}, nil
	})
	emb, err := Loader(src)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tfidf", emb.Name())
	assert.Positive(t, emb.Dimension())

	empty := listerFunc(func(context.Context) ([]domain.Case, error) { return nil, nil })
	_, err = Loader(empty)(context.Background())
	assert.Error(t, err)
}
