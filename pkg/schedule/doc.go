// Package schedule runs lint jobs on a cron schedule.
//
// Schedules use the standard five-field cron syntax or descriptors:
//
//	"0 3 * * *"    daily at 3 AM
//	"*/15 * * * *" every 15 minutes
//	"@every 1h"    hourly from start
//
// Overlapping ticks are skipped rather than queued.
package schedule
