// Package descriptor reads and writes the runtime descriptor that a bridged
// library ships next to its generated registry.
//
// The descriptor is a flat properties file:
//
//	# Code generated by bridgegen. DO NOT EDIT.
//	capabilities=2
//	fingerprint=5c1f0c9e-3a53-5d51-9d5e-6b0b1b9f6f3e
//	protocolVersion=3
//	version=1.4.0
//
// Plugin front ends load it at startup and compare protocolVersion with the
// protocol they were built for.
package descriptor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Keys written by bridgegen.
const (
	KeyCapabilities    = "capabilities"
	KeyFingerprint     = "fingerprint"
	KeyProtocolVersion = "protocolVersion"
	KeyVersion         = "version"
)

// DefaultFile is the descriptor file name.
const DefaultFile = "bridge.properties"

// DefaultProtocolVersion is assumed when a descriptor does not carry one.
const DefaultProtocolVersion = 1

// ErrProtocolMismatch is returned by CheckProtocol.
var ErrProtocolMismatch = errors.New("descriptor: protocol version mismatch")

// Descriptor is the parsed content of a descriptor file.
type Descriptor struct {
	ProtocolVersion int
	Version         string
	Fingerprint     string
	Capabilities    int

	// Extra holds keys this package does not know about.
	Extra map[string]string
}

// Parse reads a descriptor. Blank lines, lines starting with # or ! and
// unknown keys are tolerated. A missing protocolVersion defaults to 1; a
// malformed one is an error.
func Parse(r io.Reader) (*Descriptor, error) {
	d := &Descriptor{ProtocolVersion: DefaultProtocolVersion}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		key, value, ok := cutKeyValue(line)
		if !ok {
			return nil, fmt.Errorf("descriptor line %d: expected key=value, got %q", lineNo, line)
		}

		switch key {
		case KeyProtocolVersion:
			if value == "" {
				continue
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("descriptor line %d: invalid %s %q", lineNo, key, value)
			}
			d.ProtocolVersion = n
		case KeyVersion:
			d.Version = value
		case KeyFingerprint:
			d.Fingerprint = value
		case KeyCapabilities:
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("descriptor line %d: invalid %s %q", lineNo, key, value)
			}
			d.Capabilities = n
		default:
			if d.Extra == nil {
				d.Extra = make(map[string]string)
			}
			d.Extra[key] = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return d, nil
}

// Load parses the descriptor file at path.
func Load(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Encode renders the descriptor with sorted keys after the given header
// comment. Identical descriptors always encode to identical bytes.
func (d *Descriptor) Encode(header string) []byte {
	values := map[string]string{
		KeyCapabilities:    strconv.Itoa(d.Capabilities),
		KeyFingerprint:     d.Fingerprint,
		KeyProtocolVersion: strconv.Itoa(d.ProtocolVersion),
		KeyVersion:         d.Version,
	}
	for k, v := range d.Extra {
		if _, known := values[k]; !known {
			values[k] = v
		}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	if header != "" {
		for _, line := range strings.Split(header, "\n") {
			buf.WriteString("# ")
			buf.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "//"), " "))
			buf.WriteByte('\n')
		}
	}
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%s\n", k, values[k])
	}
	return buf.Bytes()
}

// CheckProtocol returns ErrProtocolMismatch unless the descriptor was
// stamped with the expected protocol version.
func (d *Descriptor) CheckProtocol(expected int) error {
	if d.ProtocolVersion != expected {
		return fmt.Errorf("%w: descriptor has %d, expected %d", ErrProtocolMismatch, d.ProtocolVersion, expected)
	}
	return nil
}

func cutKeyValue(line string) (string, string, bool) {
	i := strings.IndexAny(line, "=:")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}
