package sqldb

import (
	"strings"

	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
)

// rebindNamed replaces every @name placeholder whose name is bound in params
// with '?' and returns the matching positional arguments. Placeholders inside
// string literals, quoted identifiers and comments are left alone, as are
// @names that are not bound (MySQL reads those as user variables) and @@
// system variables. Names match case-insensitively, as MySQL user variables
// do; an exact match wins over a folded one.
func rebindNamed(query string, params []param.Param) (string, []any) {
	if len(params) == 0 || !strings.Contains(query, "@") {
		return query, nil
	}

	values := make(map[string]any, len(params))
	folded := make(map[string]any, len(params))
	for _, p := range params {
		values[p.BareName()] = p.Native()
		key := strings.ToLower(p.BareName())
		if _, ok := folded[key]; !ok {
			folded[key] = p.Native()
		}
	}

	var (
		out            strings.Builder
		args           []any
		inSingleQuote  bool
		inDoubleQuote  bool
		inBacktick     bool
		inLineComment  bool
		inBlockComment bool
	)
	out.Grow(len(query))

	for i := 0; i < len(query); i++ {
		ch := query[i]

		if inLineComment {
			out.WriteByte(ch)
			if ch == '\n' {
				inLineComment = false
			}
			continue
		}

		if inBlockComment {
			out.WriteByte(ch)
			if ch == '*' && i+1 < len(query) && query[i+1] == '/' {
				out.WriteByte('/')
				i++
				inBlockComment = false
			}
			continue
		}

		if inSingleQuote || inDoubleQuote || inBacktick {
			out.WriteByte(ch)
			if ch == '\\' && !inBacktick && i+1 < len(query) {
				out.WriteByte(query[i+1])
				i++
				continue
			}
			quote := byte('\'')
			if inDoubleQuote {
				quote = '"'
			} else if inBacktick {
				quote = '`'
			}
			if ch == quote {
				// Doubled quote is an escaped quote inside the literal.
				if i+1 < len(query) && query[i+1] == quote {
					out.WriteByte(quote)
					i++
				} else {
					inSingleQuote, inDoubleQuote, inBacktick = false, false, false
				}
			}
			continue
		}

		switch {
		case ch == '\'':
			inSingleQuote = true
		case ch == '"':
			inDoubleQuote = true
		case ch == '`':
			inBacktick = true
		case ch == '#':
			inLineComment = true
		case ch == '-' && i+2 < len(query) && query[i+1] == '-' && (query[i+2] == ' ' || query[i+2] == '\t'):
			inLineComment = true
		case ch == '/' && i+1 < len(query) && query[i+1] == '*':
			inBlockComment = true
			out.WriteString("/*")
			i++
			continue
		case ch == '@':
			if i+1 < len(query) && query[i+1] == '@' {
				out.WriteString("@@")
				i++
				continue
			}
			name := readIdent(query[i+1:])
			v, ok := values[name]
			if !ok {
				v, ok = folded[strings.ToLower(name)]
			}
			if ok && name != "" {
				out.WriteByte('?')
				args = append(args, v)
				i += len(name)
				continue
			}
		}
		out.WriteByte(ch)
	}

	return out.String(), args
}

func readIdent(s string) string {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '_' {
			continue
		}
		return s[:i]
	}
	return s
}
