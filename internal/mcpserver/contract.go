package mcpserver

const fence = "```"

// DocumentFormatContract describes the post file formats that LLM consumers
// should follow when drafting posts or previewing internal links.
const DocumentFormatContract = `# Folio Document Format Contract

Posts live in the content directory as either Markdown (` + "`.md`" + `) or
editor JSON (` + "`.json`" + `) files. The file stem is the default slug.

## Markdown posts

` + fence + `markdown
---
title: Human-readable title        # REQUIRED – used in listings and search
slug: custom-slug                   # OPTIONAL – defaults to the file stem
excerpt: One-line summary           # OPTIONAL – derived from the body when absent
site: example.com                   # OPTIONAL – limits which link rules apply
tags: [money, taxes]                # OPTIONAL – YAML list
categories: [finance]               # OPTIONAL
published_at: 2025-01-15T09:00:00Z  # OPTIONAL – RFC 3339
meta:
  description: SEO description
  og_image: /media/cover.png
---

Body in GitHub-flavoured Markdown.
` + fence + `

### Supported Markdown

- Headings, paragraphs, bold, italic, strikethrough, inline code.
- Ordered, unordered and task lists; block quotes; horizontal rules.
- Fenced code blocks (` + "` ```go `" + `) and tables.
- Links and images. An image alone in a paragraph becomes a figure.
- Callouts: a fenced block whose info string is ` + "`callout <type>`" + `
  (info, warning, success, error) renders as a styled callout.
- Raw HTML is dropped.

## JSON posts

The same frontmatter fields as top-level JSON keys, plus ` + "`content`" + `
holding the rich-text editor state:

` + fence + `json
{
  "title": "Taxes",
  "tags": ["money"],
  "content": {"root": {"type": "root", "children": [
    {"type": "paragraph", "children": [{"type": "text", "text": "Pay your taxes.", "format": 1}]}
  ]}}
}
` + fence + `

Node types: paragraph, heading (tag h1-h6), list/listitem, quote, code,
link/autolink, linebreak, horizontalrule, upload (value.url, value.alt),
block (fields.blockType: callout, customButton), table/tablerow/
tablecell, text. Text ` + "`format`" + ` is a bit mask: 1 bold, 2 italic,
4 strikethrough, 8 underline, 16 code, 32 subscript, 64 superscript.
Unknown node types are skipped when rendering.

## Internal links

Internal links are injected automatically at render time from the link
rules for the post's site. Do not hand-write links for keywords that have a
rule; use the ` + "`preview_internal_links`" + ` tool to see the result. Text
inside headings, code, existing links and buttons is never linked.

## Media

- Upload via the ` + "`upload_media`" + ` tool. It returns a ` + "`markdownImage`" + ` field ready to paste into the body.
- Files are stored flat in ` + "`media/`" + ` and served at ` + "`/media/<filename>`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf (max 10 MB).
`
