package codegen

import (
	"sort"
	"strings"

	"github.com/democracycraft/bridge/internal/compiler/cache"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
	"github.com/democracycraft/bridge/internal/compiler/stamp"
	bridgestrings "github.com/democracycraft/bridge/internal/util/strings"
)

// Fixed top-level names of a generated registry.
const (
	nameSpec     = "BridgeSpec"
	nameAdapter  = "BridgeAdapter"
	nameRegistry = "BridgeRegistry"
	nameNew      = "NewBridgeRegistry"
	nameArg      = "bridgeArg"
	nameArity    = "bridgeArity"

	anchorPrefix = "BridgeAnchor"
)

var fixedNames = []string{
	stamp.ConstProtocolVersion,
	stamp.ConstLibraryVersion,
	stamp.ConstFingerprint,
	nameSpec,
	nameAdapter,
	nameRegistry,
	nameNew,
	nameArg,
	nameArity,
}

// constNames maps each key to a constant name built from prefix and the
// Pascal-cased seed. Keys whose names collide all receive the first eight
// hex digits of the SHA-256 of the key as a suffix.
func constNames(prefix string, keys []string, seed func(string) string) map[string]string {
	byName := make(map[string][]string)
	for _, key := range keys {
		name := prefix + bridgestrings.ToPascalCase(seed(key))
		byName[name] = append(byName[name], key)
	}

	out := make(map[string]string, len(keys))
	for name, group := range byName {
		if len(group) == 1 && name != prefix {
			out[group[0]] = name
			continue
		}
		for _, key := range group {
			out[key] = name + "_" + cache.ShortHash(key, 8)
		}
	}
	return out
}

// capabilitySeed is the readable part of an id: explicit ids are used
// whole, derived ids drop their signature.
func capabilitySeed(id string) string {
	if i := strings.IndexAny(id, "(/"); i >= 0 {
		return id[:i]
	}
	return id
}

func capabilityNames(elements []*scanner.Element) map[string]string {
	ids := make([]string, len(elements))
	for i, e := range elements {
		ids[i] = e.ID()
	}
	return constNames(stamp.CapabilityPrefix, ids, capabilitySeed)
}

func anchorNames(anchors []scanner.Anchor) map[string]string {
	names := make([]string, len(anchors))
	for i, a := range anchors {
		names[i] = a.Name
	}
	return constNames(anchorPrefix, names, func(s string) string { return s })
}

// generatedNames lists every top-level identifier a registry declares,
// sorted.
func generatedNames(caps, anchors map[string]string) []string {
	names := append([]string(nil), fixedNames...)
	for _, n := range caps {
		names = append(names, n)
	}
	for _, n := range anchors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
