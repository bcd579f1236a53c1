package bound

// Built-in definitions shared by every unit. They are never mutated.
var (
	ObjectDef = &TypeDef{Name: "object", Kind: KindClass}
	IntDef    = &TypeDef{Name: "int", Kind: KindStruct}
	BoolDef   = &TypeDef{Name: "bool", Kind: KindStruct}
	StringDef = &TypeDef{Name: "string", Kind: KindClass, Base: ObjectDef, Sealed: true}
)

func init() {
	StringDef.Members = []*Symbol{{Name: "Length", Kind: SymProperty, Type: Named(IntDef, NotAnnotated)}}
}

// Builtin looks up a built-in definition by name.
func Builtin(name string) *TypeDef {
	switch name {
	case "object":
		return ObjectDef
	case "int":
		return IntDef
	case "bool":
		return BoolDef
	case "string":
		return StringDef
	}
	return nil
}
