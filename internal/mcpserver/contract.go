package mcpserver

// DocumentFormatContract describes the block document stored as entry
// content, for LLM consumers that read or produce it.
const DocumentFormatContract = `# Journal Entry Document Format

Entry content is a JSON array of blocks. Each block is an object:

` + "```" + `json
{
  "id": "optional editor id",
  "type": "paragraph",
  "props": {},
  "content": [{"type": "text", "text": "Hello", "styles": {}}],
  "children": []
}
` + "```" + `

## Rules

1. **The top level is an array** with at least one block. Empty or invalid
   content is replaced by a single empty paragraph when the entry is saved.
2. **Unknown keys and block types are preserved.** Only the blocks below carry
   meaning for the server; everything else round-trips untouched.
3. **Blocks nest** through ` + "`" + `children` + "`" + `. Tasks and images are found at any depth.

## Task blocks

` + "```" + `json
{"type": "todo",
 "props": {"todoId": "01J...", "checked": "false", "priority": "0"},
 "content": [{"type": "text", "text": "buy milk", "styles": {}}],
 "children": []}
` + "```" + `

- ` + "`" + `todoId` + "`" + ` links the block to a task item. Only use ids returned by the server
  (the insert-task API); blocks with unknown ids are ignored on save.
- ` + "`" + `checked` + "`" + ` is the string ` + "`" + `"true"` + "`" + ` or ` + "`" + `"false"` + "`" + `.
- ` + "`" + `priority` + "`" + ` is an integer written as a string.
- The task description is the block's plain text.
- Removing the block deletes the task item on the next save.

## Image blocks

` + "```" + `json
{"type": "image", "props": {"url": "https://.../media-attachments/u1/e1/2c6f.png"}, "children": []}
` + "```" + `

- Upload first with the ` + "`" + `attach_image` + "`" + ` tool and paste the returned block.
- Removing the block deletes the attachment record and, for files this server
  stores, the file itself.

## Editing

Prefer ` + "`" + `set_task_completed` + "`" + ` over rewriting task blocks by hand; it keeps the
task item and the document in step.
`
