package errors

// Diagnostic codes, grouped by the phase that raises them.
const (
	// Scanner
	ErrUnsupportedDeclarationKind = "UNSUPPORTED_DECLARATION_KIND"
	ErrInvalidMarker              = "INVALID_MARKER"
	ErrInvalidAnchor              = "INVALID_ANCHOR"

	// Validator
	ErrDuplicateCapability    = "DUPLICATE_CAPABILITY"
	ErrInaccessibleCapability = "INACCESSIBLE_CAPABILITY"
	ErrVersionMismatch        = "VERSION_MISMATCH"
	ErrDuplicateAnchor        = "DUPLICATE_ANCHOR"
	WarnAritySignature        = "ARITY_ONLY_SIGNATURE"
	WarnEmptyAPI              = "EMPTY_API"

	// Codegen
	ErrGeneratedNameConflict = "GENERATED_NAME_CONFLICT"

	// Stamp
	ErrStampDisagreement = "STAMP_DISAGREEMENT"
)

// Phases
const (
	PhaseScanner   = "scanner"
	PhaseValidator = "validator"
	PhaseCodegen   = "codegen"
	PhaseStamp     = "stamp"
)

// ErrorMessages maps codes to their default messages
var ErrorMessages = map[string]string{
	ErrUnsupportedDeclarationKind: "Marker attached to an unsupported declaration kind",
	ErrInvalidMarker:              "Malformed bridge marker",
	ErrInvalidAnchor:              "Anchor markers require a string constant",
	ErrDuplicateCapability:        "Capability id declared more than once",
	ErrInaccessibleCapability:     "Capability cannot be invoked from another package",
	ErrVersionMismatch:            "Protocol version mismatch",
	ErrDuplicateAnchor:            "Anchor key declared more than once",
	WarnAritySignature:            "Arity-only signature ids are ambiguous",
	WarnEmptyAPI:                  "API type exposes no capabilities",
	ErrGeneratedNameConflict:      "Generated name conflicts with an existing declaration",
	ErrStampDisagreement:          "Registry and descriptor protocol stamps disagree",
}

var codePhases = map[string]string{
	ErrUnsupportedDeclarationKind: PhaseScanner,
	ErrInvalidMarker:              PhaseScanner,
	ErrInvalidAnchor:              PhaseScanner,
	ErrDuplicateCapability:        PhaseValidator,
	ErrInaccessibleCapability:     PhaseValidator,
	ErrVersionMismatch:            PhaseValidator,
	ErrDuplicateAnchor:            PhaseValidator,
	WarnAritySignature:            PhaseValidator,
	WarnEmptyAPI:                  PhaseValidator,
	ErrGeneratedNameConflict:      PhaseCodegen,
	ErrStampDisagreement:          PhaseStamp,
}

// GetErrorMessage returns the default message for a code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// GetPhaseForCode returns the phase that raises a code
func GetPhaseForCode(code string) string {
	if phase, ok := codePhases[code]; ok {
		return phase
	}
	return "unknown"
}
