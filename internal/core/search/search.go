// Package search filters resource collections by free-text query.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Ning0612/Explorer/internal/domain"
)

// FilterByQuery returns the resources whose name contains query, compared
// with Unicode case folding. A blank query returns every resource.
func FilterByQuery(resources []domain.Resource, query string) []domain.Resource {
	query = strings.TrimSpace(query)
	if query == "" {
		result := make([]domain.Resource, len(resources))
		copy(result, resources)
		return result
	}

	fold := cases.Fold()
	needle := fold.String(query)

	result := make([]domain.Resource, 0)
	for _, r := range resources {
		if strings.Contains(fold.String(r.Name), needle) {
			result = append(result, r)
		}
	}
	return result
}
