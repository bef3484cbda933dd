package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// productAliases maps catalog name fragments to the ways articles refer to
// those products.
var productAliases = []struct {
	key      string
	keywords []string
}{
	{"Dell U2723QE", []string{"Dell", "U2723", "4K", "USB-C モニター"}},
	{"HHKB", []string{"HHKB", "Happy Hacking", "ハッピーハッキング"}},
	{"MX Master", []string{"MX Master", "MXマスター", "ロジクール マウス", "Logicool マウス"}},
	{"WH-1000XM5", []string{"WH-1000XM5", "XM5", "ソニー ヘッドホン", "Sony ノイキャン"}},
	{"FlexiSpot", []string{"FlexiSpot", "フレキシスポット", "電動昇降", "スタンディングデスク"}},
	{"エルゴヒューマン", []string{"エルゴヒューマン", "Ergohuman", "オフィスチェア"}},
	{"エルゴトロン", []string{"エルゴトロン", "Ergotron", "モニターアーム", "LX"}},
	{"BenQ ScreenBar", []string{"BenQ", "ScreenBar", "スクリーンバー", "モニターライト"}},
	{"Grovemade", []string{"Grovemade", "デスクマット", "本革"}},
	{"Philips Hue", []string{"Philips Hue", "フィリップス", "Hue Play", "ライトバー", "間接照明"}},
}

// KeywordExtractor derives title-matching keywords from a product name.
type KeywordExtractor struct {
	t *tokenizer.Tokenizer
}

// NewKeywordExtractor loads the IPA dictionary.
func NewKeywordExtractor() (*KeywordExtractor, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KeywordExtractor{t: t}, nil
}

// Keywords returns the alias keywords of a known product. Otherwise it
// returns the name's words of two or more characters plus any proper nouns
// the tokenizer finds inside them.
func (k *KeywordExtractor) Keywords(productName string) []string {
	var out []string
	words := strings.FieldsFunc(productName, func(r rune) bool {
		return r == ' ' || r == '　' || r == '\t'
	})

	first := ""
	if len(words) > 0 {
		first = words[0]
	}
	for _, a := range productAliases {
		if strings.Contains(productName, a.key) ||
			(utf8.RuneCountInString(first) >= 2 && strings.Contains(a.key, first)) {
			out = append(out, a.keywords...)
		}
	}
	if len(out) > 0 {
		return dedupe(out)
	}

	for _, w := range words {
		if utf8.RuneCountInString(w) >= 2 {
			out = append(out, w)
		}
	}
	if k != nil && k.t != nil {
		out = append(out, k.properNouns(productName)...)
	}
	return dedupe(out)
}

func (k *KeywordExtractor) properNouns(text string) []string {
	var out []string
	for _, tok := range k.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		f := tok.Features()
		if len(f) < 2 || f[0] != "名詞" || f[1] != "固有名詞" {
			continue
		}
		if utf8.RuneCountInString(tok.Surface) >= 2 {
			out = append(out, tok.Surface)
		}
	}
	return out
}

// MatchTitle reports whether title contains any keyword, ignoring case.
func MatchTitle(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Tokens splits text into surface forms, dropping whitespace. The catalog
// search index uses it so Japanese names are indexed word by word.
func (k *KeywordExtractor) Tokens(text string) []string {
	if k == nil || k.t == nil {
		return strings.Fields(text)
	}
	var out []string
	for _, tok := range k.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		if s := strings.TrimSpace(tok.Surface); s != "" {
			out = append(out, s)
		}
	}
	return out
}
