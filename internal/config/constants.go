package config

// Analysis limits
const (
	// MaxSlotDepth bounds member and element chains; `x` has depth 1 and
	// `x.A.B.C` depth 4.
	MaxSlotDepth = 4
	// MaxLoopIterations is the fixed-point cap for one loop. Slots still
	// changing after the cap are widened to maybe-null.
	MaxLoopIterations = 8
	// MaxWalkDepth bounds recursion over nested expressions and statements.
	MaxWalkDepth = 512
)

// Default settings
const (
	DefaultLogLevel           = "info"
	DefaultReportSubsumedArms = true
)

// ConfigFileName is looked up in the working directory by the CLI.
const ConfigFileName = "nullflow.yaml"
