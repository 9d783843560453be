package query

// TokenKind identifies the lexical class of a token.
type TokenKind int

// Token kinds, in the order the tokenizer tries to match them.
const (
	TokenWord TokenKind = iota
	TokenPhrase
	TokenAnd
	TokenOr
	TokenNot
	TokenRange
	TokenLParen
	TokenRParen
	TokenPrefix
	TokenPrefixValue
	TokenPrefixValueQuoted
	TokenProperty
)

// String returns a human-readable name for the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "word"
	case TokenPhrase:
		return "phrase"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenRange:
		return "range"
	case TokenLParen:
		return "lparen"
	case TokenRParen:
		return "rparen"
	case TokenPrefix:
		return "prefix"
	case TokenPrefixValue:
		return "prefix_value"
	case TokenPrefixValueQuoted:
		return "prefix_value_quoted"
	case TokenProperty:
		return "property"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of a query string. Tokens are immutable once the
// tokenizer returns them.
type Token struct {
	// Kind is the lexical class.
	Kind TokenKind

	// Value is the decoded payload: quotes stripped, escapes resolved,
	// operator keywords normalized to lowercase, property brackets reduced to
	// a canonical "key" or "key:value" string.
	Value string

	// Raw is the original matched text, kept for error reporting.
	Raw string

	// Pos is the byte offset of the match start in the query string.
	Pos int

	// Quoted records, for property tokens, whether the bracket value was
	// double-quoted. Quoting of prefix values is carried by the
	// TokenPrefixValueQuoted kind instead.
	Quoted bool
}
