// Package lang holds the Spanish text normalization shared by the TF-IDF
// embedder and the key-concept extractor.
package lang

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Fold lowercases text and strips combining marks, so "Crédito" becomes "credito".
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}

// Words returns the folded word and number tokens of text, stopwords included.
func Words(text string) []string {
	return wordRe.FindAllString(Fold(text), -1)
}

// Terms returns the folded, stopword-free tokens of text with synonyms
// replaced by their canonical term. Text made only of stopwords keeps them,
// so it still has terms to match on.
func Terms(text string) []string {
	raw := Words(text)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		if IsStopword(w) {
			continue
		}
		out = append(out, Canonical(w))
	}
	if len(out) == 0 {
		for _, w := range raw {
			out = append(out, Canonical(w))
		}
	}
	return out
}

// IsStopword reports whether a folded token carries no retrieval signal.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// Canonical maps a folded token to the head word of its synonym group.
func Canonical(word string) string {
	if c, ok := synonymIndex[word]; ok {
		return c
	}
	return word
}

// synonymGroups lists the vocabulary operators use interchangeably in tickets.
var synonymGroups = map[string][]string{
	"eliminar":      {"borrar", "quitar", "remover", "sacar", "anular", "cancelar"},
	"actualizar":    {"modificar", "cambiar", "editar", "corregir", "ajustar"},
	"crear":         {"generar", "agregar", "añadir", "insertar", "registrar"},
	"consultar":     {"ver", "revisar", "buscar", "verificar"},
	"asignar":       {"asociar", "vincular", "relacionar"},
	"comision":      {"comisión", "fee", "cargo"},
	"credito":       {"crédito", "prestamo", "préstamo"},
	"vendedor":      {"asesor", "comercial"},
	"concesionario": {"dealer"},
	"liquidacion":   {"liquidación", "settlement"},
	"estado":        {"status", "estatus"},
	"certificado":   {"certificate"},
	"factura":       {"invoice", "recibo"},
}

var synonymIndex = buildSynonymIndex()

func buildSynonymIndex() map[string]string {
	idx := make(map[string]string)
	for head, variants := range synonymGroups {
		h := Fold(head)
		idx[h] = h
		for _, v := range variants {
			idx[Fold(v)] = h
		}
	}
	return idx
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "al", "algo", "ante", "antes", "como", "con", "contra", "cual", "cuando", "de", "del", "desde", "donde", "durante", "e", "el", "ella", "ellos", "en", "entre", "era", "es", "esa", "ese", "eso", "esta", "este", "esto", "estan", "fue", "ha", "hay", "la", "las", "le", "les", "lo", "los", "mas", "me", "mi", "mis", "muy", "necesito", "ni", "no", "nos", "o", "para", "pero", "por", "porque", "que", "quiero", "se", "segun", "ser", "si", "sin", "sobre", "su", "sus", "tambien", "te", "tiene", "todo", "u", "un", "una", "uno", "unos", "y", "ya", "favor",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
