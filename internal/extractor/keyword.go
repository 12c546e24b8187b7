package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kljensen/snowball/english"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

/*
KeywordPlugin ranks single-word keywords and multi-word keyphrases by
stemmed-term frequency, weighting title/heading text above body text
(grounded on crawlit's keyword_extractor.py). Content shorter than ten
words is treated as too thin to rank meaningfully and yields no keywords,
matching the original's behavior.
*/

var (
	punctuationRe = regexp.MustCompile(`[^\w\s]`)
	wordStopWords = buildStopWordSet()
)

// KeywordPlugin extracts "keywords" and "keyphrases" fields.
type KeywordPlugin struct {
	MinWordLength  int
	MaxKeywords    int
	MaxPhraseWords int
	MinPhraseFreq  int
}

// NewKeywordPlugin constructs a KeywordPlugin with crawlit's original
// defaults.
func NewKeywordPlugin() *KeywordPlugin {
	return &KeywordPlugin{
		MinWordLength:  3,
		MaxKeywords:    20,
		MaxPhraseWords: 3,
		MinPhraseFreq:  2,
	}
}

func (p *KeywordPlugin) Name() string { return "keyword" }

func (p *KeywordPlugin) Extract(doc *goquery.Document) (map[string]any, failure.ClassifiedError) {
	text := weightedText(doc)
	rawWords := strings.Fields(text)
	if len(rawWords) < 10 {
		return map[string]any{"keywords": []string{}, "keyphrases": []string{}}, nil
	}

	tokens := p.tokenize(text)
	keywords := p.rankKeywords(tokens)
	keyphrases := p.rankKeyphrases(tokens)

	return map[string]any{
		"keywords":   keywords,
		"keyphrases": keyphrases,
	}, nil
}

// weightedText concatenates title (x3), h1 (x2), h2, h3, and paragraph
// text, mirroring the original's priority weighting so repeated terms in
// headings outrank incidental body mentions.
func weightedText(doc *goquery.Document) string {
	var parts []string

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title, title, title)
	}
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t, t)
		}
	})
	doc.Find("h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	if len(parts) == 0 {
		parts = append(parts, strings.TrimSpace(doc.Text()))
	}

	return strings.Join(parts, " ")
}

func (p *KeywordPlugin) tokenize(text string) []string {
	text = strings.ToLower(text)
	text = punctuationRe.ReplaceAllString(text, "")

	var tokens []string
	for _, word := range strings.Fields(text) {
		if len(word) < p.MinWordLength || wordStopWords[word] || isDigits(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// rankKeywords counts stemmed-term frequency and returns the surface form
// most commonly associated with each of the top stems, so "crawl" and
// "crawling" merge into one ranked term without losing readability.
func (p *KeywordPlugin) rankKeywords(tokens []string) []string {
	stemFreq := map[string]int{}
	stemSurface := map[string]map[string]int{}

	for _, tok := range tokens {
		stem, err := english.Stem(tok, false)
		if err != nil || stem == "" {
			stem = tok
		}
		stemFreq[stem]++
		if stemSurface[stem] == nil {
			stemSurface[stem] = map[string]int{}
		}
		stemSurface[stem][tok]++
	}

	stems := make([]string, 0, len(stemFreq))
	for stem := range stemFreq {
		stems = append(stems, stem)
	}
	sort.Slice(stems, func(i, j int) bool {
		if stemFreq[stems[i]] != stemFreq[stems[j]] {
			return stemFreq[stems[i]] > stemFreq[stems[j]]
		}
		return stems[i] < stems[j]
	})

	if len(stems) > p.MaxKeywords {
		stems = stems[:p.MaxKeywords]
	}

	keywords := make([]string, 0, len(stems))
	for _, stem := range stems {
		keywords = append(keywords, mostCommonSurface(stemSurface[stem]))
	}
	return keywords
}

func mostCommonSurface(surfaces map[string]int) string {
	best, bestCount := "", -1
	forms := make([]string, 0, len(surfaces))
	for form := range surfaces {
		forms = append(forms, form)
	}
	sort.Strings(forms)
	for _, form := range forms {
		if surfaces[form] > bestCount {
			best, bestCount = form, surfaces[form]
		}
	}
	return best
}

// rankKeyphrases builds n-grams (up to MaxPhraseWords) over the token
// stream, keeps phrases seen at least MinPhraseFreq times, then prefers
// longer phrases over the shorter phrases they contain.
func (p *KeywordPlugin) rankKeyphrases(tokens []string) []string {
	phraseFreq := map[string]int{}
	var order []string

	for i := range tokens {
		maxN := p.MaxPhraseWords
		if remaining := len(tokens) - i; remaining < maxN {
			maxN = remaining
		}
		for n := 2; n <= maxN; n++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if phraseFreq[phrase] == 0 {
				order = append(order, phrase)
			}
			phraseFreq[phrase]++
		}
	}

	var common []string
	for _, phrase := range order {
		if phraseFreq[phrase] >= p.MinPhraseFreq {
			common = append(common, phrase)
		}
	}

	sort.SliceStable(common, func(i, j int) bool {
		wi, wj := len(strings.Fields(common[i])), len(strings.Fields(common[j]))
		if wi != wj {
			return wi > wj
		}
		return phraseFreq[common[i]] > phraseFreq[common[j]]
	})

	var unique []string
	for _, phrase := range common {
		contained := false
		for _, existing := range unique {
			if strings.Contains(existing, phrase) {
				contained = true
				break
			}
		}
		if !contained {
			unique = append(unique, phrase)
		}
		if len(unique) >= p.MaxKeywords {
			break
		}
	}
	if unique == nil {
		unique = []string{}
	}
	return unique
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func buildStopWordSet() map[string]bool {
	words := strings.Fields(`a about above after again against all am an and any are aren't as at
		be because been before being below between both but by can't cannot could couldn't
		did didn't do does doesn't doing don't down during each few for from further
		had hadn't has hasn't have haven't having he he'd he'll he's her here here's hers
		herself him himself his how how's i i'd i'll i'm i've if in into is isn't it it's
		its itself let's me more most mustn't my myself no nor not of off on once only or
		other ought our ours ourselves out over own same shan't she she'd she'll she's
		should shouldn't so some such than that that's the their theirs them themselves
		then there there's these they they'd they'll they're they've this those through
		to too under until up very was wasn't we we'd we'll we're we've were weren't what
		what's when when's where where's which while who who's whom why why's with won't
		would wouldn't you you'd you'll you're you've your yours yourself yourselves`)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
