package review

const logicalGapsPrompt = `Find logical gaps in this content: conclusions that skip a reasoning step,
unexplained jumps between topics, assumptions stated as results.

Content:
%s

Respond with JSON only:
{
  "logical_gaps": [
    {"type": "missing_step", "description": "...", "location": "...", "severity": "high"}
  ]
}

severity is one of high, medium, low. Return {"logical_gaps": []} when there
are none.`

const inconsistenciesPrompt = `Find factual inconsistencies in this content: pairs of statements that
cannot both be true.

Content:
%s

Respond with JSON only:
{
  "factual_inconsistencies": [
    {"type": "contradiction", "description": "...", "claim1": "...", "claim2": "...", "severity": "medium"}
  ]
}

severity is one of high, medium, low. Return {"factual_inconsistencies": []}
when there are none.`

const unclearPrompt = `Find unclear explanations in this content: passages a technical reader
would have to re-read, undefined jargon, ambiguous pronouns.

Content:
%s

Respond with JSON only:
{
  "unclear_explanations": [
    {"type": "ambiguous", "description": "...", "location": "...", "suggestion": "how to fix it", "severity": "low"}
  ]
}

severity is one of high, medium, low. Return {"unclear_explanations": []}
when there are none.`

const factCheckNeedsPrompt = `From these statements, select only the material, consequential claims that
would mislead a reader if wrong and are worth verifying against sources.
Skip opinions, hedged statements and trivia.

Statements:
%s

Respond with JSON only: {"claims": ["claim text", "..."]}
Return {"claims": []} when nothing needs verification.`

const factCheckLLMPrompt = `Assess this claim against your own knowledge.

Claim: %s

Respond with JSON only:
{
  "verification_status": "verified",
  "confidence": "medium",
  "evidence": "what supports or undermines the claim",
  "contradictions": ["known facts the claim conflicts with"]
}

verification_status is one of verified, contradicted, unclear, unverifiable.
confidence is one of high, medium, low.`

const factCheckSearchPrompt = `Weigh this claim against the retrieved sources below. Base your assessment
on the sources, not on prior knowledge.

Claim: %s

Sources:
%s

Respond with JSON only:
{
  "verification_status": "verified",
  "confidence": "medium",
  "evidence": "what in the sources supports or undermines the claim",
  "contradictions": ["source statements the claim conflicts with"]
}

verification_status is one of verified, contradicted, unclear, unverifiable.
confidence is one of high, medium, low.`

const suggestionsPrompt = `A review of a draft technical blog post found %d logical gaps, %d factual
inconsistencies, %d unclear explanations and %d claims needing verification.
Give 3 to 10 short, actionable suggestions for improving the draft.

Respond with JSON only: {"suggestions": ["suggestion", "..."]}`
