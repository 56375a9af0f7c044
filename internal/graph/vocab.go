package graph

import (
	"strings"
)

// Namespaces used by the genealogy graph.
const (
	NS     = "http://www.example.com/genealogy.owl#"
	RDFNS  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNS = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNS  = "http://www.w3.org/2001/XMLSchema#"
)

// Vocabulary terms.
var (
	Type         = NewIRI(RDFNS + "type")
	Label        = NewIRI(RDFSNS + "label")
	HasBirthYear = NewIRI(NS + "hasBirthYear")
	HasFather    = NewIRI(NS + "hasFather")
	HasMother    = NewIRI(NS + "hasMother")
	HasParent    = NewIRI(NS + "hasParent")

	Person = NewIRI(NS + "Person")
	Man    = NewIRI(NS + "Man")
	Woman  = NewIRI(NS + "Woman")

	XSDInteger = XSDNS + "integer"
	XSDString  = XSDNS + "string"
)

// Prefix binds a short name to a namespace IRI.
type Prefix struct {
	Name string
	IRI  string
}

// DefaultPrefixes are written at the top of every artifact, in this order.
var DefaultPrefixes = []Prefix{
	{Name: "fhkb", IRI: NS},
	{Name: "rdf", IRI: RDFNS},
	{Name: "rdfs", IRI: RDFSNS},
	{Name: "xsd", IRI: XSDNS},
}

// PersonNode returns the node for a normalized person name.
//
// The mapping is injective: ASCII letters and digits are kept, a space
// becomes '_', and every other byte (including '_' itself) is written as
// %XX. The result is always a valid Turtle local name.
func PersonNode(name string) Term {
	return NewIRI(NS + encodeLocal(name))
}

func encodeLocal(name string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('_')
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

// Compact renders an IRI as prefix:local when a default prefix matches and
// the local part is a safe local name, otherwise as <iri>.
func Compact(iri string) string {
	for _, p := range DefaultPrefixes {
		if local, ok := strings.CutPrefix(iri, p.IRI); ok && safeLocal(local) {
			return p.Name + ":" + local
		}
	}
	return "<" + iri + ">"
}

func safeLocal(local string) bool {
	if local == "" {
		return false
	}
	for i := 0; i < len(local); i++ {
		c := local[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		case c == '%':
			if i+2 >= len(local) || !isHex(local[i+1]) || !isHex(local[i+2]) {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
