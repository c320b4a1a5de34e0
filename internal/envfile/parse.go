package envfile

import (
	"regexp"
	"strings"
)

var (
	keyPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	barePattern = regexp.MustCompile(`^[A-Za-z0-9_./:@+,=-]*$`)
)

// Line is one line of an environment file. Lines that are not assignments
// keep only Raw and are written back unchanged.
type Line struct {
	Raw     string
	Prefix  string
	Key     string
	Value   string
	IsEntry bool
}

// Document is an environment file held as an ordered list of lines.
type Document struct {
	lines           []Line
	trailingNewline bool
	// crlf is set when the file uses Windows line endings; rewritten and
	// appended lines keep them.
	crlf bool
}

// Parse splits data into lines. Rendering an unmodified Document returns
// exactly data.
func Parse(data []byte) *Document {
	doc := &Document{}
	if len(data) == 0 {
		return doc
	}

	text := string(data)
	if strings.HasSuffix(text, "\n") {
		doc.trailingNewline = true
		text = text[:len(text)-1]
	}

	for _, raw := range strings.Split(text, "\n") {
		if strings.HasSuffix(raw, "\r") {
			doc.crlf = true
		}
		doc.lines = append(doc.lines, parseLine(raw))
	}
	return doc
}

func parseLine(raw string) Line {
	line := Line{Raw: raw}

	body := strings.TrimRight(raw, "\r")
	trimmed := strings.TrimLeft(body, " \t")
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line
	}

	prefix := body[:len(body)-len(trimmed)]
	if strings.HasPrefix(trimmed, "export ") {
		prefix += "export "
		trimmed = strings.TrimLeft(trimmed[len("export "):], " \t")
	}

	eq := strings.IndexByte(trimmed, '=')
	if eq <= 0 {
		return line
	}
	key := strings.TrimRight(trimmed[:eq], " \t")
	if !keyPattern.MatchString(key) {
		return line
	}

	line.Prefix = prefix
	line.Key = key
	line.Value = decodeValue(trimmed[eq+1:])
	line.IsEntry = true
	return line
}

// decodeValue reads a value in any of the three accepted forms: bare,
// single-quoted (verbatim) or double-quoted (backslash escapes).
func decodeValue(s string) string {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return ""
	}

	switch s[0] {
	case '\'':
		if end := strings.IndexByte(s[1:], '\''); end >= 0 {
			return s[1 : end+1]
		}
		return s[1:]
	case '"':
		var b strings.Builder
		for i := 1; i < len(s); i++ {
			c := s[i]
			if c == '"' {
				break
			}
			if c == '\\' && i+1 < len(s) {
				i++
				switch s[i] {
				case 'n':
					b.WriteByte('\n')
				case 't':
					b.WriteByte('\t')
				case 'r':
					b.WriteByte('\r')
				default:
					b.WriteByte(s[i])
				}
				continue
			}
			b.WriteByte(c)
		}
		return b.String()
	}

	if i := strings.Index(s, " #"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " \t")
}

// encodeValue writes v bare when that is unambiguous and double-quoted otherwise.
func encodeValue(v string) string {
	if barePattern.MatchString(v) {
		return v
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, r := range v {
		switch r {
		case '\\', '"', '$':
			b.WriteByte('\\')
		case '\t':
			b.WriteString(`\t`)
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func formatEntry(prefix, key, value string) string {
	return prefix + key + "=" + encodeValue(value)
}

// Get returns the value of the first assignment of key.
func (d *Document) Get(key string) (string, bool) {
	for _, l := range d.lines {
		if l.IsEntry && l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

// Set rewrites the first assignment of key in place, drops any later
// assignments of the same key, and appends a new line when key is absent.
// It reports whether the document changed.
func (d *Document) Set(key, value string) bool {
	first := -1
	changed := false
	kept := d.lines[:0:0]

	for i, l := range d.lines {
		if !l.IsEntry || l.Key != key {
			kept = append(kept, l)
			continue
		}
		if first >= 0 {
			changed = true
			continue
		}
		first = i
		if l.Value != value {
			raw := formatEntry(l.Prefix, key, value)
			if strings.HasSuffix(l.Raw, "\r") {
				raw += "\r"
			}
			l = Line{Raw: raw, Prefix: l.Prefix, Key: key, Value: value, IsEntry: true}
			changed = true
		}
		kept = append(kept, l)
	}

	if first < 0 {
		raw := formatEntry("", key, value)
		if d.crlf {
			raw += "\r"
			if n := len(kept); n > 0 && !d.trailingNewline && !strings.HasSuffix(kept[n-1].Raw, "\r") {
				kept[n-1].Raw += "\r"
			}
		}
		kept = append(kept, Line{Raw: raw, Key: key, Value: value, IsEntry: true})
		d.trailingNewline = true
		changed = true
	}

	d.lines = kept
	return changed
}

// Entries returns the assignments in file order, first occurrence only.
func (d *Document) Entries() []Line {
	seen := make(map[string]bool)
	var entries []Line
	for _, l := range d.lines {
		if !l.IsEntry || seen[l.Key] {
			continue
		}
		seen[l.Key] = true
		entries = append(entries, l)
	}
	return entries
}

// Bytes renders the document.
func (d *Document) Bytes() []byte {
	var b strings.Builder
	for i, l := range d.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Raw)
	}
	if d.trailingNewline && len(d.lines) > 0 {
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
