package engine

// Feature represents a dialect capability that may vary between engines.
type Feature int

const (
	// FeatureStoredProcedures indicates support for invoking stored procedures.
	FeatureStoredProcedures Feature = iota

	// FeatureScalarFunctions indicates support for SELECT fn(args).
	FeatureScalarFunctions

	// FeatureTableFunctions indicates support for SELECT * FROM fn(args).
	FeatureTableFunctions

	// FeatureNamedParameters indicates the driver binds sql.NamedArg values.
	FeatureNamedParameters
)

// featureNames maps features to human-readable names.
var featureNames = map[Feature]string{
	FeatureStoredProcedures: "stored_procedures",
	FeatureScalarFunctions:  "scalar_functions",
	FeatureTableFunctions:   "table_functions",
	FeatureNamedParameters:  "named_parameters",
}

// String returns the human-readable name of a feature.
func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return "unknown"
}
