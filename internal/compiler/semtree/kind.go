// Package semtree defines the read-only semantic tree the metadata extractor
// walks: declarations, their scopes, and the identity links between them.
//
// Nodes and scopes live in an arena owned by Tree and are addressed by
// NodeID and ScopeID. The zero value of either id means "absent", so
// optional links (body indirection, import target, associated scope) need
// no pointers and identity comparison is a plain integer comparison.
package semtree

import "strings"

// Kind tags the operator of a semantic-tree node.
type Kind uint8

const (
	// KindOther is any construct the extractor has no special handling for.
	KindOther Kind = iota
	// KindModule is a module or interface declaration that owns a scope.
	KindModule
	// KindRecord is a record layout; nested records are transparent groups.
	KindRecord
	// KindField is a single record field.
	KindField
	// KindIfBlock is a conditional field block guarding a field list.
	KindIfBlock
	// KindAttr is a record attribute in its plain form.
	KindAttr
	// KindAttrLink is a record attribute that links to another expression.
	KindAttrLink
	// KindAttrExpr is a record attribute carrying an expression.
	KindAttrExpr
	// KindImport is an imported (possibly aliased) definition.
	KindImport
	// KindType is a user-defined type.
	KindType
	// KindTransform is a transform producing a record.
	KindTransform
	// KindEmbed is a function whose body is embedded foreign code.
	KindEmbed
	// KindMacro is a macro definition.
	KindMacro
	// KindFunction is a plain function definition.
	KindFunction
)

var kindNames = [...]string{
	KindOther:     "other",
	KindModule:    "module",
	KindRecord:    "record",
	KindField:     "field",
	KindIfBlock:   "ifblock",
	KindAttr:      "attr",
	KindAttrLink:  "attr_link",
	KindAttrExpr:  "attr_expr",
	KindImport:    "import",
	KindType:      "type",
	KindTransform: "transform",
	KindEmbed:     "embed",
	KindMacro:     "macro",
	KindFunction:  "function",
}

// String returns the fixture spelling of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsAttr reports whether the kind is one of the three attribute forms.
func (k Kind) IsAttr() bool {
	return k == KindAttr || k == KindAttrLink || k == KindAttrExpr
}

// ParseKind maps a fixture spelling back to a Kind.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	switch s {
	case "interface", "scope":
		return KindModule, true
	case "funcdef":
		return KindFunction, true
	}
	return KindOther, false
}

// Flags is the set of boolean attributes recognised on a declaration.
type Flags uint16

const (
	// FlagVirtual marks a virtual module.
	FlagVirtual Flags = 1 << iota
	// FlagInterface marks a module declared as an interface.
	FlagInterface
	// FlagExported marks an exported symbol.
	FlagExported
	// FlagShared marks a shared (public, non-exported) symbol.
	FlagShared
	// FlagFunction marks a declaration with a formal parameter list.
	FlagFunction
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagVirtual, "virtual"},
	{FlagInterface, "interface"},
	{FlagExported, "exported"},
	{FlagShared, "shared"},
	{FlagFunction, "function"},
}

// Has reports whether every flag in f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String lists the set flags in declaration order, joined by "|".
func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFlag maps a fixture spelling to a flag.
func ParseFlag(s string) (Flags, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, fn := range flagNames {
		if fn.name == s {
			return fn.flag, true
		}
	}
	if s == "public" {
		return FlagShared, true
	}
	return 0, false
}
