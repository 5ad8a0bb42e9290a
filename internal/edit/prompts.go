package edit

const bodyPrompt = `Turn this reviewed draft into a polished technical blog post in Markdown.
Keep every technical detail that is grounded in the facts below; do not
invent specifics beyond them. Use section headings, keep code and commands
in fenced blocks, and write in a direct, practical voice.

Draft:
%s

Verified facts from the conversation:
%s

Reviewer suggestions to consider:
%s

Output the Markdown post body only, without a top-level title line.`

const titleSummaryPrompt = `Write a title and a one-paragraph summary for a technical blog post. Both
must stay anchored on what the user originally asked, not on tangents.

What the user originally asked:
%s

Verified facts from the conversation:
%s

Post body:
%s

Respond with JSON only: {"title": "...", "summary": "..."}
The title is at most 80 characters; the summary is 2 to 3 sentences.`
