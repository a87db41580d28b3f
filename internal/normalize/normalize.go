// Package normalize produces canonical identifier strings for methods,
// endpoints, topics, classes and services. Every function is pure and safe
// for concurrent use.
package normalize

import (
	"regexp"
	"strings"
)

const (
	topicPrefix    = "topic:"
	endpointPrefix = "endpoint:"
	servicePrefix  = "service:"

	// DefaultServiceName is returned when no module or package segment qualifies.
	DefaultServiceName = "default-service"
)

// fqnPattern matches a dotted lowercase path ending in a capitalized identifier,
// e.g. "java.lang.String"; group 1 is the terminal identifier.
var fqnPattern = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:\.[a-z0-9$_]+)*\.([A-Z][a-zA-Z0-9$_]*)\b`)

// NormalizeSignature replaces every fully-qualified type reference in sig with
// its bare terminal identifier: "m(java.lang.String):java.util.List" becomes
// "m(String):List". It is idempotent.
//
// One pass is not always enough: a terminal identifier may end in "$inner",
// and the "inner.Type" left behind matches again. Replacement repeats until
// nothing changes; every round shortens the string.
func NormalizeSignature(sig string) string {
	for {
		next := fqnPattern.ReplaceAllString(sig, "$1")
		if next == sig {
			return sig
		}
		sig = next
	}
}

// CanonicalMethodID returns "<className>#<suffix>" where suffix is the
// normalized signature when it starts with methodName, else methodName itself.
// It reports false when className or methodName is empty.
func CanonicalMethodID(className, methodName, signature string) (string, bool) {
	if className == "" || methodName == "" {
		return "", false
	}
	sig := NormalizeSignature(signature)
	if sig != "" && strings.HasPrefix(sig, methodName) {
		return className + "#" + sig, true
	}
	return className + "#" + methodName, true
}

// CanonicalMethodRef canonicalizes a raw "<class>#<method or signature>" ref.
// Refs without a '#' separator are returned unchanged.
func CanonicalMethodRef(ref string) string {
	class, rest, ok := strings.Cut(ref, "#")
	if !ok || class == "" || rest == "" {
		return ref
	}
	name := rest
	if i := strings.IndexByte(rest, '('); i >= 0 {
		name = rest[:i]
	}
	id, ok := CanonicalMethodID(class, name, rest)
	if !ok {
		return ref
	}
	return id
}

// CanonicalEndpointID returns "endpoint:<METHOD> <path>" with the HTTP method
// upper-cased. It reports false when either input is empty.
func CanonicalEndpointID(httpMethod, path string) (string, bool) {
	if httpMethod == "" || path == "" {
		return "", false
	}
	return endpointPrefix + strings.ToUpper(httpMethod) + " " + path, true
}

// CanonicalTopicID strips a leading "topic:" prefix if present and re-adds it.
func CanonicalTopicID(raw string) string {
	return topicPrefix + TopicName(raw)
}

// TopicName returns the bare topic name for a raw or canonical topic ref.
func TopicName(raw string) string {
	return strings.TrimPrefix(raw, topicPrefix)
}

// CanonicalClassID joins the simple name of className to packageName:
// ("com.x.OrderService", "com.x.core") yields "com.x.core.OrderService".
func CanonicalClassID(className, packageName string) string {
	simple := SimpleClassName(className)
	if packageName == "" {
		return className
	}
	return packageName + "." + simple
}

// SimpleClassName returns the last dotted segment of a class name.
func SimpleClassName(className string) string {
	if i := strings.LastIndexByte(className, '.'); i >= 0 {
		return className[i+1:]
	}
	return className
}

// ServiceID returns the canonical id of a service node.
func ServiceID(serviceName string) string {
	return servicePrefix + serviceName
}

// DeriveModule picks a module name from a package: the third segment when
// present, else the second, else the first.
func DeriveModule(pkg string) string {
	if pkg == "" {
		return ""
	}
	parts := strings.Split(pkg, ".")
	switch {
	case len(parts) >= 3:
		return parts[2]
	case len(parts) == 2:
		return parts[1]
	default:
		return parts[0]
	}
}
