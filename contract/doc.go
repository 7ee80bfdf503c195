// Package contract declares the marker vocabulary of the capability bridge.
//
// Markers are comment directives attached to Go declarations. They are read by
// bridgegen before compilation and disappear from the compiled artifact, so
// nothing in this package is needed at run time.
//
//	//bridge:version 3
//	package vote
//
//	//bridge:anchor
//	const LeaderKey = "democracylib.leader"
//
//	//bridge:capability id=vote.cast since=2
//	func Cast(ballot Ballot) error { ... }
//
//	//bridge:api SERVICE_MANAGER
//	type ServiceManager interface {
//		//bridge:capability
//		Services() []string
//	}
//
// A capability without an explicit id gets one derived from its namespace,
// name and signature. See SignaturePolicy.
package contract
