package bound

// ConversionClass is the flow-relevant category of a conversion.
type ConversionClass int

const (
	// ClassIdentity leaves the value untouched.
	ClassIdentity ConversionClass = iota
	// ClassReferencePreserving yields the same object under another type.
	ClassReferencePreserving
	// ClassLifted wraps or unwraps a nullable value; null-ness carries over.
	ClassLifted
	// ClassValueChanging produces a new value whose state is the target
	// type's declared state.
	ClassValueChanging
)

func (c ConversionClass) String() string {
	switch c {
	case ClassIdentity:
		return "identity"
	case ClassReferencePreserving:
		return "reference-preserving"
	case ClassLifted:
		return "lifted"
	case ClassValueChanging:
		return "value-changing"
	default:
		return "unknown"
	}
}

// ConversionClassifier is supplied by the binder.
type ConversionClassifier interface {
	Classify(c *Conversion) ConversionClass
}

// DefaultClassifier classifies by ConversionKind alone.
type DefaultClassifier struct{}

func (DefaultClassifier) Classify(c *Conversion) ConversionClass {
	switch c.Kind {
	case ConvIdentity:
		return ClassIdentity
	case ConvImplicitReference, ConvExplicitReference:
		return ClassReferencePreserving
	case ConvImplicitNullable, ConvExplicitNullable:
		return ClassLifted
	default:
		return ClassValueChanging
	}
}

// ClassifierFunc adapts a function to ConversionClassifier.
type ClassifierFunc func(c *Conversion) ConversionClass

func (f ClassifierFunc) Classify(c *Conversion) ConversionClass { return f(c) }
