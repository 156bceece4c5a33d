package mcpserver

// BackupFormatContract describes the canonical JSON backup format that
// import consumers (drop directory, API, tools) accept.
const BackupFormatContract = `# Ansuz Backup Format Contract

A backup is a single UTF-8 JSON file containing one array of word records.

## Structure

` + "```" + `json
[
  {
    "headword": "abandon",
    "phonetic": "əˈbændən",
    "html_content": "<p>to give up completely</p>",
    "tags": "verb,core"
  },
  {
    "headword": "benefit",
    "phonetic": null,
    "html_content": "",
    "tags": null
  }
]
` + "```" + `

## Rules

1. **The top level is a JSON array.** Any other shape is rejected and nothing
   is imported.
2. **` + "`" + `headword` + "`" + ` is required.** Records with a missing or blank headword are
   skipped silently; the rest of the file still imports.
3. **` + "`" + `phonetic` + "`" + ` and ` + "`" + `tags` + "`" + ` are nullable strings.** Omit them or use ` + "`" + `null` + "`" + `
   when unknown.
4. **` + "`" + `html_content` + "`" + ` is an HTML fragment** (the rendered definition body). An
   empty string is fine.
5. **Extra fields are ignored.** Exported files carry ` + "`" + `id` + "`" + `, ` + "`" + `notebook_id` + "`" + `
   and ` + "`" + `chapter_id` + "`" + ` for reference; imports do not use them.
6. **Grouping is not preserved.** Every imported word lands in the "Imported"
   notebook under its "default" chapter.
7. **Imports are additive and dedup-safe.** A word whose (notebook, chapter,
   headword) row already exists is skipped, so re-importing the same file is
   harmless.

## File naming

Exports are named ` + "`" + `vocab-backup.json` + "`" + `. Files dropped into the import
directory must end in ` + "`" + `.json` + "`" + ` and are renamed with an ` + "`" + `.imported` + "`" + `
suffix once processed.
`
