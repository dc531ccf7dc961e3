package generators

import (
	"strings"
	"unicode"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

var csKeywords = map[string]bool{
	"abstract": true, "as": true, "base": true, "bool": true, "break": true,
	"byte": true, "case": true, "catch": true, "char": true, "checked": true,
	"class": true, "const": true, "continue": true, "decimal": true, "default": true,
	"delegate": true, "do": true, "double": true, "else": true, "enum": true,
	"event": true, "explicit": true, "extern": true, "false": true, "finally": true,
	"fixed": true, "float": true, "for": true, "foreach": true, "goto": true,
	"if": true, "implicit": true, "in": true, "int": true, "interface": true,
	"internal": true, "is": true, "lock": true, "long": true, "namespace": true,
	"new": true, "null": true, "object": true, "operator": true, "out": true,
	"override": true, "params": true, "private": true, "protected": true, "public": true,
	"readonly": true, "ref": true, "return": true, "sbyte": true, "sealed": true,
	"short": true, "sizeof": true, "stackalloc": true, "static": true, "string": true,
	"struct": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "uint": true, "ulong": true, "unchecked": true,
	"unsafe": true, "ushort": true, "using": true, "virtual": true, "void": true,
	"volatile": true, "while": true,
}

// escapeKeyword prefixes C# keywords with '@'.
func escapeKeyword(s string) string {
	if csKeywords[s] {
		return "@" + s
	}
	return s
}

// words splits an identifier on underscores and lower-to-upper transitions.
func words(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "_") {
		start := 0
		runes := []rune(part)
		for i := 1; i < len(runes); i++ {
			if unicode.IsLower(runes[i-1]) && unicode.IsUpper(runes[i]) {
				out = append(out, string(runes[start:i]))
				start = i
			}
		}
		if start < len(runes) {
			out = append(out, string(runes[start:]))
		}
	}
	return out
}

func pascalCase(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

func camelCase(s string) string {
	p := []rune(pascalCase(s))
	if len(p) == 0 {
		return ""
	}
	p[0] = unicode.ToLower(p[0])
	return string(p)
}

// propertyName is the C# property for a field.
func propertyName(name string) string {
	return escapeKeyword(pascalCase(name))
}

// parameterName is the C# parameter for a field or operation parameter.
func parameterName(name string) string {
	return escapeKeyword(camelCase(name))
}

// localName is a local variable that cannot clash with a parameter.
func localName(prefix, name string) string {
	return prefix + camelCase(name)
}

// escapeName returns name, suffixed with underscores until it clashes with
// neither the parameter of a member nor the local holding an optional
// member's value.
func escapeName(members []grammar.Member, name string) string {
	taken := make(map[string]bool, 2*len(members))
	for _, m := range members {
		taken[parameterName(m.Name)] = true
		taken[camelCase(m.Name)+"_"] = true
	}
	for taken[name] {
		name += "_"
	}
	return name
}

// operationMethod is the C# method name of an operation, e.g. "GreetAsync".
func operationMethod(name string) string {
	return pascalCase(name) + "Async"
}
