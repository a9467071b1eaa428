// Package cli implements the medlog command line.
//
// Usage:
//
//	medlog [global flags] <command> [command flags] [args]
//
// Commands:
//
//	status                     dose status of every medication
//	list                       registered medications
//	add -name N -interval H    register a medication (-category C)
//	rm <id>                    remove a medication
//	dose [-at T] [-force] <id|name>
//	                           record a dose, now or at time T
//	history [-n N] [id]        dose history, newest first
//	undo <entry-id>            delete a history entry
//	edit <entry-id> <time>     change the time of a history entry
//	reset [-all] [id]          zero dose counters
//	retention [months]         show or set automatic cleanup (0 disables)
//	clear [-months N]          delete history older than N months
//	export [-csv] [file]       write a JSON backup or CSV history
//	import [-mode M] <file>    merge or overwrite from a JSON backup
//	tui                        interactive interface
//
// Times are RFC 3339, "2006-01-02 15:04" or "15:04" (today) in local time.
// Without a command the TUI starts when stdout is a terminal and status is
// printed otherwise.
package cli
