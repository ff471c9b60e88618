// Package types defines the token customization entity, the fixed root
// folder catalog, option values, the Storage interface, and the standard
// error types shared by every tokenshelf component.
//
// Entities are plain in-memory values. Operations that need the rest of the
// collection (parent lookup, path resolution, option inheritance) take a
// Resolver, which the customization store implements.
package types
