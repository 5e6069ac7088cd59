package cli

// Short messages (one-liners)
const (
	MsgRootShort    = "Project agent configuration into client tools"
	MsgRootLong     = `agentlink keeps agent configuration (instructions, slash-commands, hooks,
and skills) in one canonical tree and projects it into the config layouts
of client tools via symlinks, so every tool reads the same source of truth.`
	MsgVersionShort = "Print version information"
	MsgVersionLong  = "Print detailed version information including commit hash and build date"
	MsgSyncShort    = "Link the canonical tree into client tool layouts"
	MsgSyncLong     = `Sync detects the inheritance chain starting from the current directory,
merges resources according to each node's configuration, and creates or
updates the symlinks every requested client tool reads.`
	MsgStatusShort  = "Show the chain and what sync would change"
	MsgRepairShort  = "Restore broken links without prompting"
	MsgRepairLong   = `Repair rebuilds the link plan and applies it leniently: conflicts are
skipped instead of blocking, and a missing canonical tree is reported
rather than treated as an error. Safe for login scripts and cron.`
	MsgWatchShort   = "Watch the chain and re-sync on changes"
	MsgListShort    = "List resources visible from the current chain"
	MsgInitShort    = "Scaffold a canonical tree in the current directory"

	// Status messages
	MsgDryRunNotice   = "\nDRY RUN MODE - No changes were made"
	MsgNoChanges      = "Everything is linked and up to date."
	MsgSyncSummary    = "\n%d created, %d updated, %d unchanged\n"
	MsgRepairSummary  = "\n%d restored, %d updated, %d skipped\n"
	MsgConflictHint   = "Re-run with --force to apply around conflicts."
	MsgWatchStarted   = "Watching %d chain node(s). Press Ctrl-C to stop.\n"
	MsgNoResources    = "No resources found."
	MsgInitDone       = "Initialized canonical tree at %s\n"
	MsgInitExists     = "Canonical tree already initialized at %s\n"

	// Version output
	MsgVersionFormat = "agentlink version %s\n"
	MsgCommitFormat  = "Commit: %s\n"
	MsgBuiltFormat   = "Built:  %s\n"
)
