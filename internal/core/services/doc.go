// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO; the only dependency beyond the
// ports is the UUID generator for document and snapshot IDs.
package services
