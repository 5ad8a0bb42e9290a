package extend

const identifyGapsPrompt = `Read this draft content and identify knowledge gaps: claims that need
supporting detail, concepts mentioned but never explained, missing context a
reader would want. Only list gaps that genuinely weaken the content.

Content:
%s

Respond with JSON only:
{
  "gaps": [
    {
      "type": "missing_context",
      "description": "what is missing",
      "location": "where in the content",
      "query": "a web search query that would fill the gap",
      "priority": "high"
    }
  ]
}

priority is one of high, medium, low. Return {"gaps": []} when the content
stands on its own.`

const integratePrompt = `Rewrite this content to incorporate the research findings below. Augment
the existing narrative; do not replace it. If a finding contradicts the
content, present both views side by side instead of silently overwriting. If
a finding is irrelevant to its gap, leave it out. Keep the original voice
and structure.

Content:
%s

Research findings:
%s

Output the rewritten content only, no commentary.`
