package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `codepulse records how long you spend on files, attributes the time to
the git repository and commit you were working on, and uploads
summaries to the telemetry service every minute.

- Call record_activity whenever the user edits, selects or saves a file.
  Rapid repeats are debounced; gaps of five minutes or more count as idle.
- get_status shows the status text, pending events and the last sync.
- list_repositories shows every tracked git root and its HEAD.
- configure_token stores the bearer token used for uploads.
- sync_now runs a sync cycle without waiting for the timer.
- pause_tracking / resume_tracking stop and restart recording.

Read codepulse://docs/overview for the full model.
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "codepulse://docs/overview",
		Name:        "docs_overview",
		Title:       "How codepulse measures activity",
		Description: "Debounce and idle rules, repository attribution, sync phases and status values.",
		Content: `# How codepulse measures activity

## Recording

Every ` + "`record_activity`" + ` call is an interaction with one file.

- Calls less than 2 seconds after the last accepted one are dropped.
- The duration of an accepted interaction is the time since the
  previous one, or zero when that gap is 5 minutes or more (idle).
- The first interaction after start or resume has zero duration.

## Attribution

Each interaction is attributed to the deepest git repository that
contains the file, along with that repository's current commit and
branch. Files outside any repository use the workspace folder.

Commits are detected when a repository's HEAD moves and are stored with
their author, message and diff statistics.

## Sync

Once a minute (or on ` + "`sync_now`" + `) the agent:

1. writes pending interactions to the local database and summarizes them
   per file,
2. uploads per-project totals for completed days,
3. uploads per-file summaries,
4. uploads detected commits.

Local rows are deleted only after the service acknowledges them.
Unacknowledged data is retried on the next cycle.

## Status values

| Status | Meaning |
|---|---|
| ` + "`Active`" + ` | running, nothing recorded yet |
| ` + "`Tracking…`" + ` | an interaction was just recorded |
| ` + "`Synced`" + ` | the last cycle was fully acknowledged |
| ` + "`Offline`" + ` | the service rejected or could not be reached |
| ` + "`Paused`" + ` | tracking is paused |
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
