// Package harness runs reorder scenarios and compares their traces against
// golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: drag_last_to_top
//	description: "Dragging the last record onto the first commits [c a b]"
//	numbering: dense          # or sparse, with step
//	groups: [lead, staff]     # optional; default is one unnamed group
//	items:
//	  - {id: a, sort_order: 0}
//	  - {id: b, sort_order: 1, group: lead}
//	  - {id: h, sort_order: 0, fixed: true}
//	steps:
//	  - drag: {id: c, onto: a, half: upper}
//	  - cancel: {id: c, onto: a}
//	  - move: {id: b, direction: up}
//	  - fail_next: {error: "network down"}
//	  - delete: b
//	  - refresh: true
//	expect:
//	  order: [c, a, b]
//	  stored: {c: 0, a: 1, b: 2}
//	  persist_calls: 1
//
// A step may carry expect_error with the error code it must fail with.
//
// # Deterministic Execution
//
// Each group persists to its own testutil.FakePersister, so runs need no
// database and produce identical traces. Drags are replayed with synthetic
// row geometry: every rendered row is 40 units tall and the pointer sits in
// the named half of the target row.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/drag_last_to_top.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
