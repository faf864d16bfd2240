// Package api defines the core types of the modelgate inference gateway:
// the model catalog and activation records, inference requests and results,
// stream handles, request validation, and the gateway error taxonomy.
//
// The package is dependency-free by design. Every other package in the
// gateway (registry, providers, executor, transport) builds on these types.
package api
