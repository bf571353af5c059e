package mcpserver

// NoteFormatContract describes the canonical note format that LLM consumers
// should follow when creating or updating notes.
const NoteFormatContract = `# Note Format Contract

Every note stored in the knowledge base follows this structure.

## Structure

` + "```" + `markdown
# Human-readable title

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes by title.
Use #tags anywhere in the body to label the note.
` + "```" + `

## Rules

1. **The title is the first non-empty line.** Leading Markdown markers
   (` + "`" + `#` + "`" + `, ` + "`" + `-` + "`" + `, ` + "`" + `*` + "`" + `) are stripped. A note whose content is empty is
   displayed as "Untitled note".
2. **Do not supply a separate title field.** Title and tags are derived from
   the content on every save; there is no frontmatter.
3. **Tags** are written inline as ` + "`" + `#tag` + "`" + `. They are case-insensitive (stored
   lowercase) and may contain letters, digits, underscores, and hyphens in
   any language.
4. **Wikilinks** use double brackets: ` + "`" + `[[Other Note]]` + "`" + `. The target is a note
   title, matched case-insensitively. When no exact title matches, the
   reference falls back to substring matching, so prefer full titles.
5. **Encoding** is UTF-8.
6. **No HTML** unless absolutely necessary; prefer Markdown equivalents.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool with the owning note's id. It
  returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the note body.
- Assets are stored with the note and deleted with it.
- Reference in notes using the returned URL: ` + "`" + `![description](/api/attachments/<id>)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `markdown
# Weekly standup 2026-08-24

Attendees: Alice, Bob. #meeting-notes #project-x

![Whiteboard photo](/api/attachments/7c3a1f0e)

## Action items

- [[Alice]] to review the [[Design doc]]
- Bob to update [[Project X roadmap]]
` + "```" + `
`
