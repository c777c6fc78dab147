// Package report projects a finished run into the report document:
//
//	{
//	  "run_datetime": "2024-01-01 10:00:00",
//	  "fields": {"age": [{"ruleName": "plausible", "errorIDs": [1]}]},
//	  "groups": {"suspect": {"errorIDs": [3, 5], "description": "..."}}
//	}
//
// Field and group keys keep declaration order. Empty failure sets encode
// as [].
package report
