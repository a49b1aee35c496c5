// Package loki implements the Loki log backend.
//
// It is imported as a side effect to register the "loki" backend:
//
//	import _ "github.com/hack-cli/hack/pkg/logs/loki"
package loki

import (
	"fmt"
	"regexp"
	"strings"
)

// BuildSelector constructs a LogQL stream selector scoping a query to a
// project and an optional set of services. Service names are regex-escaped
// before being joined into an alternation.
func BuildSelector(project string, services []string) string {
	var matchers []string
	if project != "" {
		matchers = append(matchers, fmt.Sprintf(`project=%q`, project))
	}

	switch len(services) {
	case 0:
	case 1:
		matchers = append(matchers, fmt.Sprintf(`service=%q`, services[0]))
	default:
		escaped := make([]string, len(services))
		for i, svc := range services {
			escaped[i] = regexp.QuoteMeta(svc)
		}
		matchers = append(matchers, fmt.Sprintf(`service=~"^(%s)$"`, strings.Join(escaped, "|")))
	}

	return fmt.Sprintf(`{%s}`, strings.Join(matchers, ","))
}
