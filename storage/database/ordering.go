package database

import (
	"strings"

	"github.com/trezcool/masomo-lab/core"
)

// OrderBy renders ordering as an ORDER BY list, with tiebreak appended
// ascending unless ordering already names it.
func OrderBy(ordering []core.DBOrdering, tiebreak string) string {
	list := make([]string, 0, len(ordering)+1)
	seen := false
	for _, ord := range ordering {
		list = append(list, ord.String())
		seen = seen || ord.Field == tiebreak
	}
	if !seen && tiebreak != "" {
		list = append(list, core.DBOrdering{Field: tiebreak, Ascending: true}.String())
	}
	return strings.Join(list, ", ")
}
