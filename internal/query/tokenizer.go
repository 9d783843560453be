package query

import (
	"strings"
)

// prefixFields are the recognized filter prefixes, each matched together with
// the ':' that follows it.
var prefixFields = []string{
	"path", "file", "tag", "state", "priority", "content", "scheduled", "deadline",
}

// Tokenize converts a query string into its token sequence. It never fails:
// unrecognized characters are skipped one at a time, so malformed input
// degrades to a shorter token stream rather than an error.
func Tokenize(query string) []Token {
	t := tokenizer{input: query}
	t.run()

	return t.tokens
}

type tokenizer struct {
	input  string
	pos    int
	tokens []Token
}

// run scans the input left to right. The match order encodes precedence
// between lexical forms: phrase, keyword operators, the range operator,
// parentheses, filter prefixes, property brackets, NOT, then generic words.
func (t *tokenizer) run() {
	for t.pos < len(t.input) {
		if isSpace(t.input[t.pos]) {
			t.pos++

			continue
		}

		switch {
		case t.scanPhrase():
		case t.scanKeyword():
		case t.scanRange():
		case t.scanParen():
		case t.scanRelativeDateValue():
		case t.scanPrefixRangeValue():
		case t.scanPrefix():
		case t.scanProperty():
		case t.scanNot():
		case t.scanWord():
		default:
			// Lenient lexing: drop the character and keep going.
			t.pos++
		}
	}
}

// emit appends a token, reclassifying word and phrase tokens that directly
// follow a prefix token into prefix values. The quoted variant keeps its own
// kind so exact-match semantics survive into the parser.
func (t *tokenizer) emit(kind TokenKind, value string, start int, quoted bool) {
	if n := len(t.tokens); n > 0 && t.tokens[n-1].Kind == TokenPrefix {
		switch kind {
		case TokenWord:
			kind = TokenPrefixValue
		case TokenPhrase:
			kind = TokenPrefixValueQuoted
		default:
		}
	}

	t.tokens = append(t.tokens, Token{
		Kind:   kind,
		Value:  value,
		Raw:    t.input[start:t.pos],
		Pos:    start,
		Quoted: quoted,
	})
}

func (t *tokenizer) scanPhrase() bool {
	if t.input[t.pos] != '"' {
		return false
	}

	idx := t.pos + 1
	for idx < len(t.input) {
		switch t.input[idx] {
		case '\\':
			// Skip the escaped character so \" does not close the phrase.
			idx += 2
			if idx > len(t.input) {
				idx = len(t.input)
			}
		case '"':
			start := t.pos
			inner := t.input[t.pos+1 : idx]
			t.pos = idx + 1
			t.emit(TokenPhrase, strings.ReplaceAll(inner, `\"`, `"`), start, true)

			return true
		default:
			idx++
		}
	}

	// Unterminated quote: no phrase here, the '"' itself gets skipped.
	return false
}

func (t *tokenizer) scanKeyword() bool {
	run := t.wordRun()
	if run == "" {
		return false
	}

	var kind TokenKind

	switch {
	case strings.EqualFold(run, "and"):
		kind = TokenAnd
	case strings.EqualFold(run, "or"):
		kind = TokenOr
	default:
		return false
	}

	start := t.pos
	t.pos += len(run)
	t.emit(kind, strings.ToLower(run), start, false)

	return true
}

func (t *tokenizer) scanRange() bool {
	if !strings.HasPrefix(t.input[t.pos:], "..") {
		return false
	}

	start := t.pos
	t.pos += 2
	t.emit(TokenRange, "..", start, false)

	return true
}

func (t *tokenizer) scanParen() bool {
	switch t.input[t.pos] {
	case '(':
		start := t.pos
		t.pos++
		t.emit(TokenLParen, "(", start, false)

		return true
	case ')':
		start := t.pos
		t.pos++
		t.emit(TokenRParen, ")", start, false)

		return true
	default:
		return false
	}
}

// scanRelativeDateValue merges a multi-word relative date keyword into a
// single prefix value after a scheduled:/deadline: prefix, so
// "scheduled:this week" carries "this week" as one value instead of a value
// "this" and a stray term "week". Only the fixed keyword vocabulary merges;
// anything else falls through to the generic word scan.
func (t *tokenizer) scanRelativeDateValue() bool {
	n := len(t.tokens)
	if n == 0 || t.tokens[n-1].Kind != TokenPrefix || !Field(t.tokens[n-1].Value).DateField() {
		return false
	}

	words, ends := t.wordRunsAhead(3)
	if len(words) < 2 {
		return false
	}

	// Longest merge first: "next 5 days" before "next 5".
	for count := len(words); count >= 2; count-- {
		if !relativeDatePhrase(strings.ToLower(strings.Join(words[:count], " "))) {
			continue
		}

		start := t.pos
		t.pos = ends[count-1]
		t.emit(TokenPrefixValue, strings.Join(words[:count], " "), start, false)

		return true
	}

	return false
}

// relativeDatePhrase reports whether the lowercased text is one of the
// multi-word relative date keywords.
func relativeDatePhrase(lower string) bool {
	switch lower {
	case "this week", "next week", "this month", "next month":
		return true
	default:
		return nextDaysPattern.MatchString(lower)
	}
}

// wordRunsAhead collects up to limit consecutive whitespace-separated word
// runs starting at the current position, without consuming them, along with
// the byte offset just past each run.
func (t *tokenizer) wordRunsAhead(limit int) ([]string, []int) {
	var (
		words []string
		ends  []int
	)

	idx := t.pos

	for len(words) < limit {
		for idx < len(t.input) && isSpace(t.input[idx]) {
			idx++
		}

		start := idx
		for idx < len(t.input) && isWordChar(t.input[idx]) {
			idx++
		}

		if idx == start {
			break
		}

		words = append(words, t.input[start:idx])
		ends = append(ends, idx)
	}

	return words, ends
}

// scanPrefixRangeValue handles a range directly after a filter prefix. A
// generic word would swallow the ".." operator, so the text up to the dots is
// extracted as the prefix value and the range operator is left for the next
// pass. Only fires when the previous token is a prefix.
func (t *tokenizer) scanPrefixRangeValue() bool {
	n := len(t.tokens)
	if n == 0 || t.tokens[n-1].Kind != TokenPrefix {
		return false
	}

	run := t.wordRun()

	idx := strings.Index(run, "..")
	if idx <= 0 {
		return false
	}

	start := t.pos
	t.pos += idx
	t.emit(TokenPrefixValue, run[:idx], start, false)

	return true
}

func (t *tokenizer) scanPrefix() bool {
	rest := t.input[t.pos:]

	for _, field := range prefixFields {
		if len(rest) > len(field) && rest[len(field)] == ':' && strings.HasPrefix(rest, field) {
			start := t.pos
			t.pos += len(field) + 1
			t.emit(TokenPrefix, field, start, false)

			return true
		}
	}

	return false
}

func (t *tokenizer) scanProperty() bool {
	if t.input[t.pos] != '[' {
		return false
	}

	closeIdx := -1
	inQuotes := false

	for idx := t.pos + 1; idx < len(t.input); idx++ {
		switch t.input[idx] {
		case '"':
			inQuotes = !inQuotes
		case ']':
			if !inQuotes {
				closeIdx = idx
			}
		}

		if closeIdx != -1 {
			break
		}
	}

	if closeIdx == -1 {
		// No closing bracket: not a property, the '[' starts a word.
		return false
	}

	start := t.pos
	inner := t.input[t.pos+1 : closeIdx]
	t.pos = closeIdx + 1

	value, quoted := decodeProperty(inner)
	t.emit(TokenProperty, value, start, quoted)

	return true
}

// decodeProperty reduces the bracket interior to a canonical "key" or
// "key:value" string, unwrapping one level of double quotes from the key and
// value independently. The returned bool reports whether the value was quoted.
func decodeProperty(inner string) (string, bool) {
	key, value, hasValue := cutOutsideQuotes(inner, ':')

	key, _ = unwrapQuotes(strings.TrimSpace(key))
	if !hasValue {
		return key, false
	}

	value, quoted := unwrapQuotes(strings.TrimSpace(value))

	return key + ":" + value, quoted
}

// cutOutsideQuotes splits s around the first sep that is not inside double
// quotes.
func cutOutsideQuotes(s string, sep byte) (string, string, bool) {
	inQuotes := false

	for idx := 0; idx < len(s); idx++ {
		switch {
		case s[idx] == '"':
			inQuotes = !inQuotes
		case s[idx] == sep && !inQuotes:
			return s[:idx], s[idx+1:], true
		}
	}

	return s, "", false
}

// unwrapQuotes removes one level of surrounding double quotes, reporting
// whether it did.
func unwrapQuotes(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], true
	}

	return s, false
}

// scanNot recognizes a dash as the NOT operator. The scanner only reaches a
// dash at a token boundary; a dash inside a word-like run stays part of that
// run (tag:foo-bar, 2024-01-31), which is what keeps hyphenated prefix values
// and range endpoints intact.
func (t *tokenizer) scanNot() bool {
	if t.input[t.pos] != '-' {
		return false
	}

	start := t.pos
	t.pos++
	t.emit(TokenNot, "-", start, false)

	return true
}

func (t *tokenizer) scanWord() bool {
	run := t.wordRun()
	if run == "" {
		return false
	}

	start := t.pos
	t.pos += len(run)
	t.emit(TokenWord, run, start, false)

	return true
}

// wordRun returns the maximal run of word characters at the current position
// without consuming it.
func (t *tokenizer) wordRun() string {
	idx := t.pos
	for idx < len(t.input) && isWordChar(t.input[idx]) {
		idx++
	}

	return t.input[t.pos:idx]
}

func isWordChar(c byte) bool {
	return !isSpace(c) && c != '"' && c != '(' && c != ')'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
