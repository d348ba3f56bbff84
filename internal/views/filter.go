package views

import (
	"strings"

	"github.com/isdelr/usercache/internal/models"
	"golang.org/x/text/cases"
)

// FilterByName returns the users whose name contains query, ignoring case.
// An empty query returns users unchanged.
func FilterByName(users []models.User, query string) []models.User {
	if query == "" {
		return users
	}
	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(fold.String(u.Name), needle) {
			out = append(out, u)
		}
	}
	return out
}
