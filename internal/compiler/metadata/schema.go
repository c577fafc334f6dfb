package metadata

// Element names of the metadata tree. Consumers depend on these spellings.
const (
	ElemMeta          = "Meta"
	ElemDefinition    = "Definition"
	ElemImport        = "Import"
	ElemDocumentation = "Documentation"
	ElemParents       = "Parents"
	ElemParent        = "Parent"
	ElemParams        = "Params"
	ElemParam         = "Param"
	ElemField         = "Field"
	ElemIfBlock       = "IfBlock"
	ElemAttr          = "Attr"
)

// Scalar properties. Keys with an "@" prefix are attributes of the node;
// the others are scalar child values.
const (
	AttrName        = "@name"
	AttrFullName    = "@fullname"
	AttrLine        = "@line"
	AttrStart       = "@start"
	AttrBody        = "@body"
	AttrEnd         = "@end"
	AttrSource      = "@source"
	AttrExported    = "@exported"
	AttrShared      = "@shared"
	AttrInheritType = "@inherit_type"
	AttrVirtual     = "@virtual"
	AttrRemoteScope = "@remotescope"
	AttrRef         = "@ref"

	PropType   = "Type"
	PropReturn = "Return"
)

// Values written under PropType.
const (
	TypeModule    = "module"
	TypeInterface = "interface"
	TypeRecord    = "record"
	TypeType      = "type"
	TypeAttribute = "attribute"
	TypeTransform = "transform"
	TypeEmbed     = "embed"
	TypeMacro     = "macro"
	TypeFunction  = "function"
)
