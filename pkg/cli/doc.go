/*
Package cli provides helpers shared by the tablint commands.

Output Formatting:

Command results render as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Text output uses a result's Text method when it has one; CSV output needs a
Table.

Exit Codes:

ExitCode maps command errors to process exit codes so scripts can tell a
broken rule document (3) from an unreadable source (4) or a run that found
violations with --fail-on-violations (2).

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
