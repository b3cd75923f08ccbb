// Package loanflow provides a durable loan-application processing engine.
//
// Applications move through a small decision loop driven by a remote
// underwriting agent: the engine validates the application, runs agent
// turns, gathers bank-statement evidence on request and, when required by
// policy, suspends until a human reviewer decides. Every external call is
// journaled so that an application can be rebuilt from its history alone.
//
// End-users typically interact with the engine via the high-level Service
// façade exposed by the root package:
//
//	srv := loanflow.New()
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	result, _ := rt.StartOrUpdate(ctx, app)
//	status, _ := rt.Status(ctx, app.ID)
//
// For more details see the README and individual sub-packages.
package loanflow
