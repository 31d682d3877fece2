package token

import (
	"unicode"
)

type Type int

const (
	LParen Type = iota
	RParen
	Ident
	String
	Number
	// Illegal carries a rune or unterminated literal the lexer could not place.
	Illegal
)

func (t Type) String() string {
	switch t {
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Ident:
		return "identifier"
	case String:
		return "string"
	case Number:
		return "number"
	case Illegal:
		return "illegal"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' || c == '$' || c == '-'
}

func Tokenize(input string) []Token {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Line comment
		if r == ';' && i+1 < len(runes) && runes[i+1] == ';' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			line++
			continue
		}

		if r == '(' {
			if i+1 < len(runes) && runes[i+1] == ';' {
				depth := 1
				i += 2
				for i < len(runes) && depth > 0 {
					if runes[i] == '(' && i+1 < len(runes) && runes[i+1] == ';' {
						depth++
						i++
					} else if runes[i] == ';' && i+1 < len(runes) && runes[i+1] == ')' {
						depth--
						i++
					} else if runes[i] == '\n' {
						line++
					}
					i++
				}
				i--
				continue
			}
			tokens = append(tokens, Token{"(", LParen, line})
			continue
		}

		if r == ')' {
			tokens = append(tokens, Token{")", RParen, line})
			continue
		}

		if r == '"' {
			start := i + 1
			startLine := line
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' {
					i++
				} else if runes[i] == '\n' {
					line++
				}
				i++
			}
			if i >= len(runes) {
				tokens = append(tokens, Token{string(runes[start-1:]), Illegal, startLine})
				break
			}
			tokens = append(tokens, Token{string(runes[start:i]), String, startLine})
			continue
		}

		if unicode.IsDigit(r) {
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Number, line})
			i--
			continue
		}

		// Identifier: $names, keywords and flag words such as eh-entry
		if r == '$' || unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, line})
			i--
			continue
		}

		tokens = append(tokens, Token{string(r), Illegal, line})
	}

	return tokens
}
