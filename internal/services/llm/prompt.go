package llm

// TranscriptAnalysisPrompt instructs the model to return the analysis JSON.
const TranscriptAnalysisPrompt = `You analyse transcripts of customer meetings held by a solutions engineering team.
Respond with a single JSON object and nothing else, using exactly these keys:

{
  "call_type": "technical" | "partner" | "non-technical",
  "customer_name": string,      // the external company, "" if unclear
  "title": string,              // short session title
  "summary": string,            // 3-6 sentences
  "action_items": [{"owner": string, "text": string}],
  "components": [string],       // systems, products or services discussed
  "gaps": [string],             // missing capabilities or open risks
  "diagram": string             // Mermaid source, "" for non-technical calls
}

Rules:
- "technical" covers architecture, integration or troubleshooting sessions; "partner" covers sessions with a reseller or technology partner; everything else is "non-technical".
- Keep action items in the order they were agreed. Owner is the person's name as spoken, or "" if nobody took it.
- For technical and partner calls, describe the customer's architecture as a Mermaid flowchart ("graph TD" or "flowchart LR"). Do not wrap it in code fences.
- Never invent a customer name that is not said or clearly implied.`
