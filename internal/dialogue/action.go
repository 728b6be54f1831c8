package dialogue

import "strings"

// action is a parsed callback token. The wire format is dash-separated:
//
//	location-<id>
//	category-<id>
//	item-<id>[-<verb>[-<param>]]
//	cart[-<uid>-<verb>[-<param>]]
//	resetlocation-<step>
//	admin-<verb>
//
// Cart uids never contain dashes (8 uppercase alphanumerics), so the
// naive split is safe.
type action struct {
	screen string // location | category | item | cart | resetlocation | admin
	id     string // numeric ID or cart line uid, "" when absent
	verb   string
	param  string
}

func parseAction(data string) action {
	parts := strings.Split(data, "-")
	a := action{screen: parts[0]}
	if len(parts) > 1 {
		a.id = parts[1]
	}
	if len(parts) > 2 {
		a.verb = parts[2]
	}
	if len(parts) > 3 {
		a.param = parts[3]
	}
	return a
}
