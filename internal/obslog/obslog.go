// Package obslog builds the *zap.Logger the ambient adapters (ingestion,
// report, CLI) inject into whatever they construct. The calculation engine
// itself never imports this package: it is a pure function over values,
// returning warnings and errors instead of logging them directly
// (SPEC_FULL.md §4.17).
package obslog

import "go.uber.org/zap"

// New builds a JSON-structured logger for env ("production" or
// "development"), mirroring the teacher's zap.NewProduction() call sites
// (internal/app/agent/chat.go, generalAgent.go) but exposing the choice
// instead of hardcoding it, since the CLI runs interactively far more
// often than the teacher's backend service does.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
