package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jeffallen007/what-would-she-say/core"
)

// Assigner computes identities from a namespace and a set of stable fields.
// An Assigner is immutable and safe for concurrent use.
type Assigner struct {
	namespace string
	fields    []string
}

// NewAssigner creates an assigner for the given namespace.
// fields lists the metadata keys that identify a document. When no fields
// are given every metadata key takes part, in sorted order.
func NewAssigner(namespace string, fields ...string) (*Assigner, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrMissingStableField)
		}
		if _, ok := seen[f]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, f)
		}
		seen[f] = struct{}{}
	}

	return &Assigner{
		namespace: namespace,
		fields:    append([]string(nil), fields...),
	}, nil
}

// Fields returns the declared stable fields, nil when all metadata is used.
func (a *Assigner) Fields() []string {
	if len(a.fields) == 0 {
		return nil
	}
	return append([]string(nil), a.fields...)
}

// Namespace returns the namespace mixed into every identity.
func (a *Assigner) Namespace() string {
	return a.namespace
}

// Assign returns the identity of doc. It never looks at the content or at
// metadata outside the stable fields.
func (a *Assigner) Assign(doc core.Document) (core.ID, error) {
	name, err := a.canonical(doc.Metadata)
	if err != nil {
		return core.ID{}, err
	}
	return core.ID(uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name))), nil
}

// canonical renders the namespaced, type-tagged name that gets hashed.
// Every part is length-prefixed, so no choice of values can make two
// different field sets render the same name.
func (a *Assigner) canonical(m core.Metadata) (string, error) {
	fields := a.fields
	if len(fields) == 0 {
		fields = m.Keys()
	}

	var b strings.Builder
	writePart(&b, a.namespace)
	for _, f := range fields {
		v, ok := m[f]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingStableField, f)
		}
		s, err := formatValue(v)
		if err != nil {
			return "", fmt.Errorf("%w: field %s: %w", ErrUnsupportedValue, f, err)
		}
		writePart(&b, f)
		writePart(&b, s)
	}
	return b.String(), nil
}

func writePart(b *strings.Builder, part string) {
	b.WriteString(strconv.Itoa(len(part)))
	b.WriteByte(':')
	b.WriteString(part)
}

// formatValue renders a scalar with a type tag so 1 and "1" hash differently.
// int and int64 share a tag since sources may produce either for the same field.
func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "s:" + x, nil
	case bool:
		return "b:" + strconv.FormatBool(x), nil
	case int:
		return "i:" + strconv.FormatInt(int64(x), 10), nil
	case int64:
		return "i:" + strconv.FormatInt(x, 10), nil
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("type %T", v)
	}
}
