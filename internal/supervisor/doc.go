// Package supervisor drives the uipilot pipeline end to end.
//
// A run takes one natural-language goal through a fixed lifecycle:
//
//	Idle -> Planning -> Executing -> Verifying -> Completed
//
// Failed is reachable only from Planning. Once steps exist, the run
// always completes: step failures and verification misses are recorded
// in the result rather than aborting the pipeline.
//
// # Run Lifecycle
//
// Run validates the goal, assigns a UUID task ID, and places the ID in
// the context so every downstream log line and artifact correlates to
// the run. It then calls the planner, executor, and verifier in order
// and assembles the complete task.Result, including the single final
// summary line. Only the supervisor composes that summary.
//
// Run returns an error in exactly two cases: an empty goal
// (task.ErrInvalidGoal) and a failed planning phase
// (task.ErrPlanningFailed). In both, no result exists; an invalid goal
// never reaches the planner, and a planning failure never reaches the
// executor or the verifier.
//
// # Concurrency
//
// All per-run state lives in a per-call struct, so a single Service is
// safe for concurrent Run calls; runs never observe each other.
//
// # Usage
//
//	sup, err := supervisor.NewService(plannerSvc, executorSvc, verifierSvc, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := sup.Run(ctx, "Enable Airplane Mode from Settings")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary)
package supervisor
