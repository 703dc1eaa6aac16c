// Package criteria defines badge criteria types and evaluates them
// against live data.
//
// # Overview
//
// The Registry is the closed catalog of criteria types a badge may
// use. Each Definition names its type, its config fields, and whether
// an automatic evaluator exists for it. Validate checks a badge's
// criteria config against the field specs before it is stored, so the
// evaluator never sees a malformed config.
//
//	def, ok := registry.Lookup(criteria.TypeMessageCount)
//	err := registry.Validate(criteria.TypeMessageCount, map[string]interface{}{
//		"value": 10,
//	})
//
// # Evaluation
//
// Satisfied answers whether a profile currently meets a badge's
// criteria. Current is the operative word: results are recomputed from
// live, non-deleted data on every call, so a profile that loses
// reputation can stop satisfying a badge it satisfied yesterday.
// Already-granted awards are not revoked by evaluation; that asymmetry
// belongs to the awards service.
//
// Criteria configs are revalidated at evaluation time. A badge whose
// stored config has rotted (say the type was retired) evaluates to an
// error rather than a false positive.
//
// # Related Packages
//
//   - pkg/awards: grants, sweeps, and persistence of awards
package criteria
