/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package packagejson

import (
	"errors"
	"fmt"
	"strings"
)

// errUnmatched signals that no condition applied at some level of a
// conditional target. Parent levels keep looking; at the top it becomes
// ErrNotExported.
var errUnmatched = errors.New("no matching condition")

// NodeKind identifies the shape of an exports or imports target.
type NodeKind int

const (
	// NullTarget is an explicit null, excluding the subpath.
	NullTarget NodeKind = iota
	// PathTarget is a single target string.
	PathTarget
	// ConditionalTarget maps condition names to nested targets.
	ConditionalTarget
	// FallbackTarget is an array of targets tried in order.
	FallbackTarget
)

// Node is one parsed exports or imports target. Exactly one of the fields
// matching Kind is populated.
type Node struct {
	Kind       NodeKind
	Path       string
	Conditions map[string]*Node
	Fallbacks  []*Node
}

// SubpathMap maps subpath keys (".", "./feature", "./icons/*", "#internal")
// to their targets. Sugar forms of "exports" are normalized to a map with a
// single "." key.
type SubpathMap map[string]*Node

func parseNode(value any) (*Node, error) {
	switch v := value.(type) {
	case nil:
		return &Node{Kind: NullTarget}, nil
	case string:
		return &Node{Kind: PathTarget, Path: v}, nil
	case []any:
		node := &Node{Kind: FallbackTarget, Fallbacks: make([]*Node, 0, len(v))}
		for _, item := range v {
			child, err := parseNode(item)
			if err != nil {
				return nil, err
			}
			node.Fallbacks = append(node.Fallbacks, child)
		}
		return node, nil
	case map[string]any:
		node := &Node{Kind: ConditionalTarget, Conditions: make(map[string]*Node, len(v))}
		for key, item := range v {
			if strings.HasPrefix(key, ".") {
				return nil, fmt.Errorf("%w: condition objects cannot contain subpath key %q", ErrInvalid, key)
			}
			child, err := parseNode(item)
			if err != nil {
				return nil, err
			}
			node.Conditions[key] = child
		}
		return node, nil
	default:
		return nil, fmt.Errorf("%w: unsupported target %v", ErrInvalid, value)
	}
}

// parseExports normalizes the "exports" field into a SubpathMap.
// An object must use either all subpath keys or all condition keys.
func parseExports(value any) (SubpathMap, error) {
	obj, isObject := value.(map[string]any)
	if !isObject {
		node, err := parseNode(value)
		if err != nil {
			return nil, fmt.Errorf("exports: %w", err)
		}
		return SubpathMap{".": node}, nil
	}

	subpaths, conditions := 0, 0
	for key := range obj {
		if strings.HasPrefix(key, ".") {
			subpaths++
		} else {
			conditions++
		}
	}
	if subpaths > 0 && conditions > 0 {
		return nil, fmt.Errorf("%w: exports mixes subpath keys and condition keys", ErrInvalid)
	}

	if conditions > 0 {
		node, err := parseNode(value)
		if err != nil {
			return nil, fmt.Errorf("exports: %w", err)
		}
		return SubpathMap{".": node}, nil
	}

	m := make(SubpathMap, len(obj))
	for key, item := range obj {
		node, err := parseNode(item)
		if err != nil {
			return nil, fmt.Errorf("exports[%q]: %w", key, err)
		}
		m[key] = node
	}
	return m, nil
}

// parseImports parses the "imports" field. Keys that do not start with "#"
// can never match and are dropped.
func parseImports(value any) (SubpathMap, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: imports must be an object", ErrInvalid)
	}
	m := make(SubpathMap, len(obj))
	for key, item := range obj {
		if !strings.HasPrefix(key, "#") {
			continue
		}
		node, err := parseNode(item)
		if err != nil {
			return nil, fmt.Errorf("imports[%q]: %w", key, err)
		}
		m[key] = node
	}
	return m, nil
}

// resolve looks key up in the map. Exact keys win; otherwise the most
// specific matching pattern key is used and its "*" capture is substituted
// into the target.
func (m SubpathMap) resolve(key string, conditions []string, imports bool) (string, error) {
	if node, ok := m[key]; ok && !strings.Contains(key, "*") {
		return finish(node.resolve("", conditions, imports))
	}

	bestKey, capture := "", ""
	for pattern := range m {
		prefix, suffix, ok := strings.Cut(pattern, "*")
		if !ok || strings.Contains(suffix, "*") {
			continue
		}
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		if len(key) < len(prefix)+len(suffix)+1 {
			continue
		}
		if bestKey == "" || PatternKeyCompare(bestKey, pattern) > 0 {
			bestKey = pattern
			capture = key[len(prefix) : len(key)-len(suffix)]
		}
	}

	if bestKey == "" {
		return "", ErrNotExported
	}
	return finish(m[bestKey].resolve(capture, conditions, imports))
}

func finish(target string, err error) (string, error) {
	if errors.Is(err, errUnmatched) {
		return "", ErrNotExported
	}
	return target, err
}

// resolve evaluates a target node. Conditions are tried in the caller's
// priority order with "default" last. Within an array, the first element that
// resolves wins.
func (n *Node) resolve(capture string, conditions []string, imports bool) (string, error) {
	switch n.Kind {
	case NullTarget:
		return "", ErrNotExported

	case PathTarget:
		return substitute(n.Path, capture, imports)

	case ConditionalTarget:
		for _, condition := range conditions {
			if condition == "default" {
				continue
			}
			child, ok := n.Conditions[condition]
			if !ok {
				continue
			}
			target, err := child.resolve(capture, conditions, imports)
			if errors.Is(err, errUnmatched) {
				continue
			}
			return target, err
		}
		if child, ok := n.Conditions["default"]; ok {
			return child.resolve(capture, conditions, imports)
		}
		return "", errUnmatched

	case FallbackTarget:
		lastErr := errUnmatched
		for _, child := range n.Fallbacks {
			target, err := child.resolve(capture, conditions, imports)
			if err == nil {
				return target, nil
			}
			lastErr = err
		}
		return "", lastErr
	}

	return "", errUnmatched
}

// substitute validates a target string and replaces every "*" with capture.
func substitute(target, capture string, imports bool) (string, error) {
	if !strings.HasPrefix(target, "./") {
		// imports may point at another package by bare name
		if imports && !strings.HasPrefix(target, "../") && !strings.HasPrefix(target, "/") && !strings.Contains(target, ":") {
			return strings.ReplaceAll(target, "*", capture), nil
		}
		return "", fmt.Errorf("%w: target %q must start with \"./\"", ErrInvalid, target)
	}
	if !validSegments(target[2:]) {
		return "", fmt.Errorf("%w: target %q leaves the package", ErrInvalid, target)
	}
	if capture != "" && !validSegments(capture) {
		return "", fmt.Errorf("%w: %q is not a valid pattern match", ErrInvalid, capture)
	}
	return strings.ReplaceAll(target, "*", capture), nil
}

// validSegments rejects empty, ".", ".." and node_modules segments.
func validSegments(rel string) bool {
	for segment := range strings.SplitSeq(strings.ReplaceAll(rel, "\\", "/"), "/") {
		switch strings.ToLower(segment) {
		case "", ".", "..", "node_modules":
			return false
		}
	}
	return true
}

// PatternKeyCompare orders pattern keys by specificity. It returns a negative
// number when a is more specific than b: a longer prefix before "*" wins
// and the longer key breaks ties.
func PatternKeyCompare(a, b string) int {
	baseA := strings.Index(a, "*") + 1
	if baseA == 0 {
		baseA = len(a)
	}
	baseB := strings.Index(b, "*") + 1
	if baseB == 0 {
		baseB = len(b)
	}
	switch {
	case baseA > baseB:
		return -1
	case baseB > baseA:
		return 1
	case !strings.Contains(a, "*"):
		return 1
	case !strings.Contains(b, "*"):
		return -1
	case len(a) > len(b):
		return -1
	case len(b) > len(a):
		return 1
	}
	return 0
}
