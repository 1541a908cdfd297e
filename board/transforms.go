package board

import "strings"

// NamedTransform looks up one of the board's built-in content mappings by
// name. A transform callback is a Go closure and cannot cross the wire, so
// request adapters (ws, api) offer clients this small fixed registry
// instead of accepting arbitrary code.
func NamedTransform(name string) (func(string) (string, error), bool) {
	f, ok := namedTransforms[name]
	return f, ok
}

// NamedTransformNames lists the registry keys, for adapters that want to
// advertise what's available.
func NamedTransformNames() []string {
	names := make([]string, 0, len(namedTransforms))
	for name := range namedTransforms {
		names = append(names, name)
	}
	return names
}

var namedTransforms = map[string]func(string) (string, error){
	"uppercase": func(s string) (string, error) {
		return strings.ToUpper(s), nil
	},
	"reverse": func(s string) (string, error) {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r), nil
	},
	"rot13": func(s string) (string, error) {
		return strings.Map(rot13Rune, s), nil
	},
}

func rot13Rune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return 'a' + (r-'a'+13)%26
	case r >= 'A' && r <= 'Z':
		return 'A' + (r-'A'+13)%26
	default:
		return r
	}
}
