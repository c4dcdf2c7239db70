package category

import (
	"sort"
	"strings"
)

// Guesser infers a category from a product description.
type Guesser interface {
	Guess(description string) (category string, ok bool)
}

// Rule maps description keywords to a category name.
type Rule struct {
	Category string
	Keywords []string
}

// KeywordGuesser picks the category whose rule matches the most keywords in
// a description. Ties go to the rule listed first.
type KeywordGuesser struct {
	rules []Rule
}

// NewKeywordGuesser normalizes the rules' keywords once.
func NewKeywordGuesser(rules []Rule) *KeywordGuesser {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if words := tokens(k); len(words) > 0 {
				kws = append(kws, strings.Join(words, " "))
			}
		}
		out[i] = Rule{Category: r.Category, Keywords: kws}
	}
	return &KeywordGuesser{rules: out}
}

// Guess implements Guesser.
func (g *KeywordGuesser) Guess(description string) (string, bool) {
	words := tokens(description)
	if len(words) == 0 {
		return "", false
	}
	padded := " " + strings.Join(words, " ") + " "

	type hit struct {
		idx, score int
	}
	var hits []hit
	for i, r := range g.rules {
		score := 0
		for _, k := range r.Keywords {
			if strings.Contains(padded, " "+k+" ") || strings.Contains(padded, " "+k+"s ") {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{i, score})
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	return g.rules[hits[0].idx].Category, true
}

func tokens(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// DefaultRules covers the Mercado Livre categories sellers most often leave
// blank in their reports.
func DefaultRules() []Rule {
	return []Rule{
		{"Livros, Revistas e Comics", []string{"livro", "revista", "hq", "gibi", "manga", "edição"}},
		{"Alimentos e Bebidas", []string{"café", "chá", "biscoito", "chocolate", "azeite", "vinho", "cerveja", "suco", "tempero"}},
		{"Pet Shop", []string{"ração", "pet", "coleira", "aquário", "arranhador", "petisco"}},
		{"Informática", []string{"notebook", "mouse", "teclado", "monitor", "ssd", "pendrive", "roteador", "usb"}},
		{"Eletrônicos, Áudio e Vídeo", []string{"fone", "caixa de som", "tv", "soundbar", "cabo hdmi", "carregador", "bluetooth", "celular", "smartphone"}},
		{"Beleza e Cuidado Pessoal", []string{"shampoo", "perfume", "maquiagem", "batom", "creme", "hidratante", "esmalte"}},
		{"Calçados, Roupas e Bolsas", []string{"camiseta", "tênis", "bolsa", "calça", "vestido", "jaqueta", "sandália", "meia"}},
		{"Brinquedos e Hobbies", []string{"brinquedo", "boneca", "quebra-cabeça", "pelúcia", "lego", "carrinho"}},
		{"Casa, Móveis e Decoração", []string{"luminária", "tapete", "cortina", "almofada", "prateleira", "panela", "toalha"}},
		{"Esportes e Fitness", []string{"halter", "yoga", "bicicleta", "academia", "bola", "squeeze"}},
		{"Construção", []string{"furadeira", "parafusadeira", "chave de fenda", "alicate", "serra", "cimento", "torneira"}},
		{"Acessórios para Veículos", []string{"automotivo", "carro", "moto", "pneu", "farol", "retrovisor"}},
		{"Bebês", []string{"bebê", "fralda", "mamadeira", "chupeta", "carrinho de bebê"}},
		{"Saúde", []string{"termômetro", "oxímetro", "suplemento", "vitamina", "curativo"}},
	}
}
