package channel

import "strings"

// Wildnames returns the wildcard patterns covering a concrete channel name,
// ordered by decreasing specificity: the single-level wildcard at the
// deepest parent first, then the recursive wildcards walking toward the
// root. For /a/b/c it returns
//
//	[/a/b/*, /a/b/**, /a/**, /**]
//
// Names that are themselves wildcard patterns (ending in /* or /**) and the
// empty string expand to nil. The result is a pure function of name.
func Wildnames(name string) []string {
	if name == "" {
		return nil
	}

	segments := strings.Split(name, "/")
	last := segments[len(segments)-1]
	if last == "*" || last == "**" {
		return nil
	}
	segments = segments[:len(segments)-1]

	// One recursive pattern per parent level plus the single-level one.
	ret := make([]string, 0, len(segments)+1)

	var prefix strings.Builder
	prefix.Grow(len(name))
	for _, segment := range segments {
		prefix.WriteString(segment)
		prefix.WriteByte('/')
		ret = append([]string{prefix.String() + "**"}, ret...)
	}
	ret = append([]string{prefix.String() + "*"}, ret...)

	return ret
}
