package everhour

import (
	"github.com/skalski/evermult/pkg/timerecord"
	"github.com/tidwall/gjson"
)

// parseRef normalizes the upstream's two reference shapes into one Ref. A
// reference arrives either as a bare id ("ev:123") or as an embedded object
// with id, name, platform and project fields. This is the single place that
// handles the difference; nothing else in the codebase inspects raw JSON refs.
func parseRef(g gjson.Result) timerecord.Ref {
	switch g.Type {
	case gjson.String, gjson.Number:
		return timerecord.Ref{ID: g.String()}
	case gjson.JSON:
		if !g.IsObject() {
			return timerecord.Ref{}
		}
		ref := timerecord.Ref{
			ID:       g.Get("id").String(),
			Name:     g.Get("name").String(),
			Platform: g.Get("platform").String(),
		}
		for _, p := range g.Get("projects").Array() {
			ref.Projects = append(ref.Projects, p.String())
		}
		return ref
	default:
		return timerecord.Ref{}
	}
}

func parseRecordResult(g gjson.Result) timerecord.TimeRecord {
	return timerecord.TimeRecord{
		ID:       g.Get("id").String(),
		Date:     timerecord.Date(g.Get("date").String()),
		Seconds:  int(g.Get("time").Int()),
		Task:     parseRef(g.Get("task")),
		User:     parseRef(g.Get("user")),
		Comment:  g.Get("comment").String(),
		Billable: g.Get("billable").Bool(),
		Locked:   g.Get("isLocked").Bool(),
		Invoiced: g.Get("isInvoiced").Bool(),
	}
}

func parseRecord(body string) timerecord.TimeRecord {
	return parseRecordResult(gjson.Parse(body))
}

func parseRecords(body string) []timerecord.TimeRecord {
	var out []timerecord.TimeRecord
	for _, g := range gjson.Parse(body).Array() {
		out = append(out, parseRecordResult(g))
	}
	return out
}
