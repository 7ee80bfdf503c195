package contract

// DirectivePrefix starts every bridge marker comment.
const DirectivePrefix = "//bridge:"

// Directive names.
const (
	// Capability exposes a function, method, interface method or named type.
	Capability = "capability"
	// API names the namespace of a struct or interface type.
	API = "api"
	// Anchor marks a string constant shared between bridge participants.
	Anchor = "anchor"
	// Version declares the protocol version the package was written against.
	Version = "version"
)

// Options accepted by the capability directive.
const (
	OptionID        = "id"
	OptionSince     = "since"
	OptionSide      = "side"
	OptionSignature = "signature"
)

// GeneratedHeader opens every file written by bridgegen. Files starting with
// it are skipped when a package is scanned again.
const GeneratedHeader = "// Code generated by bridgegen. DO NOT EDIT."

// DefaultProtocolVersion applies when the build does not configure one.
const DefaultProtocolVersion = 1

// DefaultSince is the protocol version a capability is assumed to exist in
// when it does not say otherwise.
const DefaultSince = 1

// Side is the intended call direction of a capability.
type Side string

const (
	SideFollowerToLeader Side = "follower"
	SideLeaderInternal   Side = "leader"
	SideBoth             Side = "both"
)

// Stability says where a capability id comes from.
type Stability string

const (
	// StableID ids are written in the marker and survive renames.
	StableID Stability = "stable"
	// DerivedID ids are computed from namespace, name and signature.
	DerivedID Stability = "derived"
)

// SignaturePolicy controls how derived ids encode the signature.
type SignaturePolicy string

const (
	// SignatureFull encodes every parameter type: NS#Name(a.T,int).
	SignatureFull SignaturePolicy = "full"
	// SignatureArity encodes only the parameter count: NS#Name/2. Not recommended.
	SignatureArity SignaturePolicy = "arity"
)

// DeclKind is the kind of declaration a marker is attached to.
type DeclKind string

const (
	KindFunc            DeclKind = "func"
	KindMethod          DeclKind = "method"
	KindInterfaceMethod DeclKind = "interface_method"
	KindType            DeclKind = "type"
	KindConst           DeclKind = "const"
	KindVar             DeclKind = "var"
	KindField           DeclKind = "field"
	KindImport          DeclKind = "import"
)
