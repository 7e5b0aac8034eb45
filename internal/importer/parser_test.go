package importer

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Fixture(t *testing.T) {
	f, err := os.Open("testdata/casos.txt")
	require.NoError(t, err)
	defer f.Close()

	res, err := Parse(f)
	require.NoError(t, err)
	require.Len(t, res.Cases, 3)

	comisiones := res.Cases[0]
	assert.Equal(t, "Comisiones", comisiones.Category)
	assert.Equal(t, "Actualizar valores de comisión para crédito específico", comisiones.ProblemText)
	assert.True(t, strings.HasPrefix(comisiones.QueryTemplate, "SELECT * FROM FormatExcelDlle"))
	assert.True(t, strings.HasSuffix(comisiones.QueryTemplate, "WHERE CreditNumber = '[CREDITO]';"))
	assert.NotContains(t, comisiones.QueryTemplate, "TIEMPO:")
	assert.Equal(t, "Se actualizaron los valores de comisión correctamente.", comisiones.ResponseTemplate)

	estados := res.Cases[1]
	assert.Equal(t, "Estados", estados.Category, "unaccented header")
	assert.Contains(t, estados.QueryTemplate, "EstadoLiquidacionVendedor = 77")
	assert.Empty(t, estados.ResponseTemplate)

	certificado := res.Cases[2]
	assert.Equal(t, DefaultCategory, certificado.Category)
	assert.Equal(t, "SELECT * FROM Certificados WHERE CreditNumber = '[CREDITO]';", certificado.QueryTemplate)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Index)
	assert.Equal(t, "missing technical solution section", res.Skipped[0].Reason)
}

func TestParse_EdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantCases   int
		wantSkipped int
	}{
		{"empty input", "", 0, 0},
		{"only separators", "=====\n\n=====\n", 0, 0},
		{"header text only", "Reporte\nsin casos\n", 0, 0},
		{
			name:        "problem never closed",
			input:       "--- PROBLEMA ---\nTexto sin cierre",
			wantSkipped: 1,
		},
		{
			name:      "no separator around a single case",
			input:     "--- PROBLEMA ---\nAlgo\n--- SOLUCIÓN TÉCNICA ---\nSELECT 1;",
			wantCases: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Len(t, res.Cases, tt.wantCases)
			assert.Len(t, res.Skipped, tt.wantSkipped)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParse_ReadError(t *testing.T) {
	_, err := Parse(failingReader{})
	assert.ErrorContains(t, err, "disk gone")
}
