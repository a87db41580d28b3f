package normalize

import "strings"

// DefaultStopwords are package segments that name organizations or layers
// rather than services.
var DefaultStopwords = []string{
	"com", "org", "net", "io", "dev", "app",
	"core", "web", "api", "impl", "internal",
	"messaging", "service", "services",
}

// ServiceNamer infers service names from module and package names.
// The zero value has no stopwords.
type ServiceNamer struct {
	stopwords map[string]struct{}
}

// NewServiceNamer returns a namer skipping the given package segments. A nil
// slice selects DefaultStopwords.
func NewServiceNamer(stopwords []string) *ServiceNamer {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		if w = strings.TrimSpace(w); w != "" {
			set[strings.ToLower(w)] = struct{}{}
		}
	}
	return &ServiceNamer{stopwords: set}
}

// DeriveServiceName returns moduleName when non-empty. Otherwise it scans the
// package segments from last to first and returns the first one that is
// neither empty nor a stopword, falling back to DefaultServiceName.
func (n *ServiceNamer) DeriveServiceName(moduleName, packageName string) string {
	if moduleName != "" {
		return moduleName
	}
	if packageName == "" {
		return DefaultServiceName
	}
	parts := strings.Split(packageName, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		seg := parts[i]
		if seg == "" || n.isStopword(seg) {
			continue
		}
		return seg
	}
	return DefaultServiceName
}

func (n *ServiceNamer) isStopword(seg string) bool {
	if n == nil || n.stopwords == nil {
		return false
	}
	_, ok := n.stopwords[strings.ToLower(seg)]
	return ok
}
