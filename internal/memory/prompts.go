package memory

const extractFactsPrompt = `Extract the key facts from this conversation excerpt. A fact is a
self-contained, verifiable statement that later processing would need to
understand the rest of the conversation: decisions made, technical details
established, constraints stated, named tools or entities. Skip opinions and
pleasantries. Do not restate facts that are already known.

Already known facts:
%s

Conversation:
%s

Output one fact per line, each prefixed with "FACT:". Output nothing else.
If the excerpt contains no new facts worth keeping, output nothing.`

const condenseFactsPrompt = `Condense this list of facts into at most %d facts. Merge overlapping
facts and drop trivia. Keep atomic, verifiable statements (preferences,
constraints, named entities, decisions); drop opinions and summaries of
summaries. Do not invent facts that are not in the list.

Facts:
%s

Output one fact per line, each prefixed with "FACT:". Output nothing else.`
