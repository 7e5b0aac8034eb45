package concepts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyExtractor(t *testing.T) {
	tests := []struct {
		name string
		max  int
		text string
		want []string
	}{
		{
			name: "stopwords dropped, accents folded",
			max:  5,
			text: "Actualizar valores de comisión para crédito específico",
			want: []string{"actualizar", "valores", "comision", "credito", "especifico"},
		},
		{
			name: "synonyms counted together",
			max:  2,
			text: "Borrar factura y eliminar recibo duplicado",
			want: []string{"eliminar", "factura"},
		},
		{
			name: "short words ignored",
			max:  5,
			text: "ID de la OT",
			want: []string{},
		},
		{
			name: "numbers and stopwords are never concepts",
			max:  5,
			text: "Error 500 en el crédito 1234567890123",
			want: []string{"error", "credito"},
		},
		{
			name: "stopword-only text has no concepts",
			max:  5,
			text: "por favor que",
			want: []string{},
		},
		{
			name: "default maximum",
			max:  0,
			text: "uno dos tres cuatro cinco seis siete ocho",
			want: []string{"dos", "tres", "cuatro", "cinco", "seis"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewFrequencyExtractor(tt.max).Extract(tt.text))
		})
	}
}

func TestFrequencyExtractor_Join(t *testing.T) {
	e := NewFrequencyExtractor(3)
	assert.Equal(t, "actualizar,estado,liquidacion", e.Join("Cambiar estado de liquidación de vendedor"))
	assert.Equal(t, "", e.Join(""))
}
