package automap

import "github.com/uber-go/tally/v4"

type metrics struct {
	query              tally.Counter
	insert             tally.Counter
	update             tally.Counter
	delete             tally.Counter
	reload             tally.Counter
	reloadFailed       tally.Counter
	associationSkipped tally.Counter
	errors             tally.Counter
}

func newMetrics(scope tally.Scope) *metrics {
	scope = scope.SubScope("engine")
	return &metrics{
		query:              scope.Counter("query"),
		insert:             scope.Counter("insert"),
		update:             scope.Counter("update"),
		delete:             scope.Counter("delete"),
		reload:             scope.Counter("reload"),
		reloadFailed:       scope.Counter("reload_failed"),
		associationSkipped: scope.Counter("association_skipped"),
		errors:             scope.Counter("errors"),
	}
}
