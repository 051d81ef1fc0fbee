// Package scheduler triggers jobs on cron or interval schedules.
//
// Every trigger runs under a per-run timeout and a run-in-progress guard:
// a trigger that fires while the previous run of the same schedule is still
// executing is skipped instead of overlapping it.
package scheduler
