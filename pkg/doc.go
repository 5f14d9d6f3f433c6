// Package pkg provides the core libraries for the ptdetail tendon importer.
//
// # Overview
//
// ptdetail turns INDUCTA PTD post-tensioning exports into placed drawing
// elements. The pkg directory is organized into four main areas:
//
//  1. Domain models ([ptd], [geom]) - tendon records and planar geometry
//  2. Fitting ([align], [snap], [group], [tag]) - placing and annotating the batch
//  3. Host surface ([host], [host/memdoc]) - transactional document writing
//  4. Orchestration ([pipeline], [settings]) - the import flow and its tuning
//
// # Architecture
//
// The typical data flow through an import:
//
//	PTD export file
//	         ↓
//	    [ptd] package (parse tendon records, metres → millimetres)
//	         ↓
//	    [align] package (rigid fit onto the slab boundary)
//	         ↓
//	    [snap] package (pull endpoints onto the outline)
//	         ↓
//	    [group] + [tag] packages (cluster runs, derive annotations)
//	         ↓
//	    [host] document (two-phase transactional creation)
//
// The [pipeline] package drives the flow end to end; [settings] supplies
// per-document families, tolerances and toggles; [errors] carries coded
// errors across the package boundaries; [observability] lets callers hook
// stage events without a metrics dependency.
package pkg
