package structured

import (
	"fmt"
	"reflect"
	"strings"
)

// Instructions describes the shape of T for a model prompt. Structs carrying
// yaml tags are requested as YAML, everything else as JSON. A `description`
// tag on a field is included in the field list.
func Instructions[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return fmt.Sprintf("Respond with a single %s value and nothing else.", t.Kind())
	}

	format := FormatJSON
	if hasTag(t, "yaml", map[reflect.Type]bool{}) {
		format = FormatYAML
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Respond with %s in a fenced code block using this structure:\n\n", strings.ToUpper(format.String()))
	fmt.Fprintf(&b, "```%s\n", format)
	if format == FormatYAML {
		writeYAML(&b, t, 0)
	} else {
		writeJSON(&b, t, 0)
		b.WriteString("\n")
	}
	b.WriteString("```\n\nFields:\n")
	writeDescriptions(&b, t, "", format)
	b.WriteString("\nIf a field cannot be determined, leave it empty.")
	return b.String()
}

type field struct {
	name        string
	typ         reflect.Type
	description string
}

// fields lists the exported, non-skipped fields of t under the names the
// given format decodes them by.
func fields(t reflect.Type, format Format) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := fieldName(f, format)
		if name == "-" {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		out = append(out, field{name: name, typ: ft, description: f.Tag.Get("description")})
	}
	return out
}

// fieldName mirrors the default naming of yaml.v3 (lowercased) and
// encoding/json (field name) when no tag is set.
func fieldName(f reflect.StructField, format Format) string {
	key := "json"
	if format == FormatYAML {
		key = "yaml"
	}
	if tag, ok := f.Tag.Lookup(key); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" {
			return name
		}
	}
	if format == FormatYAML {
		return strings.ToLower(f.Name)
	}
	return f.Name
}

func hasTag(t reflect.Type, key string, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if _, ok := f.Tag.Lookup(key); ok {
			return true
		}
		if nested := structElem(f.Type); nested != nil && hasTag(nested, key, seen) {
			return true
		}
	}
	return false
}

// structElem returns the struct type behind t, its pointer or its slice
// element, or nil.
func structElem(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t
	}
	return nil
}

func writeYAML(b *strings.Builder, t reflect.Type, indent int) {
	pad := strings.Repeat("  ", indent)
	for _, f := range fields(t, FormatYAML) {
		switch {
		case f.typ.Kind() == reflect.Struct:
			fmt.Fprintf(b, "%s%s:\n", pad, f.name)
			writeYAML(b, f.typ, indent+1)
		case f.typ.Kind() == reflect.Slice && structElem(f.typ) != nil:
			fmt.Fprintf(b, "%s%s:\n%s  -\n", pad, f.name, pad)
			writeYAML(b, structElem(f.typ), indent+2)
		case f.typ.Kind() == reflect.Slice:
			fmt.Fprintf(b, "%s%s: [] # list of %s\n", pad, f.name, f.typ.Elem().Kind())
		default:
			fmt.Fprintf(b, "%s%s: %s\n", pad, f.name, placeholder(f.typ))
		}
	}
}

func writeJSON(b *strings.Builder, t reflect.Type, indent int) {
	pad := strings.Repeat("  ", indent)
	b.WriteString("{\n")
	for i, f := range fields(t, FormatJSON) {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(b, "%s  %q: ", pad, f.name)
		switch {
		case f.typ.Kind() == reflect.Struct:
			writeJSON(b, f.typ, indent+1)
		case f.typ.Kind() == reflect.Slice && structElem(f.typ) != nil:
			b.WriteString("[")
			writeJSON(b, structElem(f.typ), indent+1)
			b.WriteString("]")
		case f.typ.Kind() == reflect.Slice:
			b.WriteString("[]")
		default:
			b.WriteString(placeholder(f.typ))
		}
	}
	fmt.Fprintf(b, "\n%s}", pad)
}

func placeholder(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return `""`
	case reflect.Bool:
		return "false"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "0"
	case reflect.Float32, reflect.Float64:
		return "0.0"
	default:
		return "null"
	}
}

func writeDescriptions(b *strings.Builder, t reflect.Type, prefix string, format Format) {
	for _, f := range fields(t, format) {
		path := f.name
		if prefix != "" {
			path = prefix + "." + f.name
		}
		desc := f.description
		if desc == "" {
			desc = f.typ.String()
		}
		fmt.Fprintf(b, "- %s: %s\n", path, desc)

		if nested := structElem(f.typ); nested != nil {
			if f.typ.Kind() == reflect.Slice {
				path += "[]"
			}
			writeDescriptions(b, nested, path, format)
		}
	}
}
