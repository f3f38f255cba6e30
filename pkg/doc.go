// Package pkg provides the core libraries for pomstack descriptor
// resolution.
//
// # Overview
//
// Pomstack turns Maven-style build descriptors into effective dependency
// models: it downloads parent chains, merges dependency management across
// ancestors and BOM imports, and computes the transitive dependency graph
// with nearest-wins conflict resolution.
//
// The pkg directory is organized by concern:
//
//   - [pom] - descriptor and settings parsing into the requested model
//   - [pomtree] - print-faithful editable source trees with inline markers
//   - [resolve] - the resolution engine: downloader, management merge,
//     effective dependencies, module trees, synchronization
//   - [dag], [render] - dependency graph structure and DOT/SVG/JSON export
//   - [cache], [config], [errors], [observability], [api] - supporting
//     infrastructure
//
// # Data flow
//
//	pom.xml bytes
//	     ↓ pomtree.Parse / pom.Parse
//	requested model (pom.Project)
//	     ↓ resolve.Resolver
//	effective model (resolve.ResolvedProject)
//	     ↓ render.FromProject
//	dependency graph (dag.DAG) → DOT / SVG / JSON
//
// Partial failure is a first-class outcome: a resolve.Aggregate collects
// per-coordinate download failures while everything else still resolves.
package pkg
