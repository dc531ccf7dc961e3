package generators

import "github.com/IvanVnn/icerpc-csharp/internal/grammar"

// ToolVersion is written into the preamble of every generated file.
const ToolVersion = "0.3.0"

// Options configures code generation.
type Options struct {
	// ToolVersion overrides the version written into the preamble.
	ToolVersion string
	// Namespaces maps Slice modules to their C# namespace when it differs
	// from the module path (the cs_namespace override of another file).
	Namespaces map[string]string
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{ToolVersion: ToolVersion}
}

func (o Options) version() string {
	if o.ToolVersion == "" {
		return ToolVersion
	}
	return o.ToolVersion
}

// NamespacesOf collects the namespace overrides declared by files, keyed by
// module, so that references into those modules resolve to the override.
func NamespacesOf(files []*grammar.File) map[string]string {
	out := make(map[string]string)
	for _, f := range files {
		if f.Module != nil && f.Module.CSNamespace != "" {
			out[f.Module.Name] = f.Module.CSNamespace
		}
	}
	return out
}
