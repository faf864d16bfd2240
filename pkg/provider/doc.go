// Package provider defines the uniform two-operation contract every backend
// vendor adapter presents to the gateway, plus shared helpers for mapping
// vendor HTTP failures into the gateway error taxonomy.
//
// Adapters live in subpackages (completion, chat, transcribe, image,
// generic), one per vendor protocol. Each adapter owns its authentication
// header construction, URL composition, and response parsing; the gateway
// only sees Infer, Stream, and the declared Capabilities.
package provider
