package sd

import (
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/sdguide/internal/syntax"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
	tokNewline
)

type token struct {
	kind  tokenKind
	text  string
	start syntax.Position
	end   syntax.Position
}

// lexer produces tokens for schema files. Newlines are emitted as tokens
// because property values (`indexing: ...`, `expression: ...`) end at the
// end of the line.
type lexer struct {
	src  []byte
	off  int
	line int
	col  int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) pos() syntax.Position {
	return syntax.Position{Line: l.line, Column: l.col, Offset: l.off}
}

func (l *lexer) peekRune() (rune, int) {
	if l.off >= len(l.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRune(l.src[l.off:])
}

func (l *lexer) advance() rune {
	r, size := l.peekRune()
	if size == 0 {
		return r
	}
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) next() token {
	for {
		r, size := l.peekRune()
		if size == 0 {
			p := l.pos()
			return token{kind: tokEOF, start: p, end: p}
		}
		switch {
		case r == '\n':
			start := l.pos()
			l.advance()
			return token{kind: tokNewline, text: "\n", start: start, end: l.pos()}
		case unicode.IsSpace(r):
			l.advance()
		case r == '#':
			l.skipLine()
		case r == '/' && l.at(1) == '*':
			l.skipBlockComment()
		case r == '/' && l.at(1) == '/':
			l.skipLine()
		case r == '"' || r == '\'':
			return l.quoted(r)
		case isIdentStart(r):
			return l.ident()
		case unicode.IsDigit(r):
			return l.number()
		default:
			start := l.pos()
			l.advance()
			return token{kind: tokPunct, text: string(r), start: start, end: l.pos()}
		}
	}
}

func (l *lexer) at(ahead int) byte {
	if l.off+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.off+ahead]
}

func (l *lexer) skipLine() {
	for {
		r, size := l.peekRune()
		if size == 0 || r == '\n' {
			return
		}
		l.advance()
	}
}

func (l *lexer) skipBlockComment() {
	l.advance()
	l.advance()
	for l.off < len(l.src) {
		if l.src[l.off] == '*' && l.at(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func (l *lexer) quoted(q rune) token {
	start := l.pos()
	l.advance()
	textStart := l.off
	for {
		r, size := l.peekRune()
		if size == 0 || r == '\n' {
			break
		}
		if r == '\\' {
			l.advance()
			l.advance()
			continue
		}
		if r == q {
			text := string(l.src[textStart:l.off])
			l.advance()
			return token{kind: tokString, text: text, start: start, end: l.pos()}
		}
		l.advance()
	}
	return token{kind: tokString, text: string(l.src[textStart:l.off]), start: start, end: l.pos()}
}

func (l *lexer) ident() token {
	start := l.pos()
	for {
		r, size := l.peekRune()
		if size == 0 || !isIdentPart(r) {
			break
		}
		l.advance()
	}
	return token{kind: tokIdent, text: string(l.src[start.Offset:l.off]), start: start, end: l.pos()}
}

func (l *lexer) number() token {
	start := l.pos()
	for {
		r, size := l.peekRune()
		if size == 0 || !(unicode.IsDigit(r) || r == '.' || r == 'e' || r == 'E') {
			break
		}
		l.advance()
	}
	return token{kind: tokNumber, text: string(l.src[start.Offset:l.off]), start: start, end: l.pos()}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '$' || r == '@'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || r == '-' || r == '.'
}
