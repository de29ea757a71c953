package crudr

// scanParams walks a SQL statement and returns the distinct :name parameters
// it references, in order of first appearance. Quoted strings, line comments
// and block comments are skipped; "::" is an escape and never starts a name.
func scanParams(q string) []string {
	// State machine for safe scanning through strings, comments, identifiers.
	const (
		sText = iota
		sSQ   // '...'
		sDQ   // "..."
		sBT   // `...`
		sLC   // line comment --
		sBC   // block comment /* ... */
	)
	state := sText

	var names []string
	var seen map[string]bool

	for i := 0; i < len(q); {
		c := q[i]

		switch state {
		case sText:
			if c == '-' && i+1 < len(q) && q[i+1] == '-' {
				state = sLC
				i += 2
				continue
			}
			if c == '/' && i+1 < len(q) && q[i+1] == '*' {
				state = sBC
				i += 2
				continue
			}
			switch c {
			case '\'':
				state = sSQ
			case '"':
				state = sDQ
			case '`':
				state = sBT
			case ':':
				if i+1 < len(q) && q[i+1] == ':' {
					i += 2
					continue
				}
				j := i + 1
				if j < len(q) && isAlphaUnderscore(q[j]) {
					k := j + 1
					for k < len(q) && isAlphaNumUnderscore(q[k]) {
						k++
					}
					name := q[j:k]
					if seen == nil {
						seen = make(map[string]bool, 8)
					}
					if !seen[name] {
						seen[name] = true
						names = append(names, name)
					}
					i = k
					continue
				}
			}
			i++

		case sSQ:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '\'' {
				state = sText
			}
			i++

		case sDQ:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '"' {
				state = sText
			}
			i++

		case sBT:
			if c == '`' {
				state = sText
			}
			i++

		case sLC:
			if c == '\n' || c == '\r' {
				state = sText
			}
			i++

		case sBC:
			if c == '*' && i+1 < len(q) && q[i+1] == '/' {
				state = sText
				i += 2
				continue
			}
			i++
		}
	}

	return names
}

// isAlphaUnderscore reports whether b is [A-Za-z_] .
func isAlphaUnderscore(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}

// isAlphaNumUnderscore reports whether b is [A-Za-z0-9_] .
func isAlphaNumUnderscore(b byte) bool {
	return isAlphaUnderscore(b) || (b >= '0' && b <= '9')
}
