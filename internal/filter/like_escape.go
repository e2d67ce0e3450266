package filter

import "strings"

const likeEscapeClause = `ESCAPE '\'`

var likeReplacer = strings.NewReplacer(
	`\`, `\\`,
	"%", `\%`,
	"_", `\_`,
)

func escapeLikePattern(value string) string {
	return likeReplacer.Replace(value)
}
