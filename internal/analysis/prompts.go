package analysis

import "fmt"

const classifySystemPrompt = `You are an HR interview question classifier. Analyze the given statement and determine:
1. Is it a question (requires an answer)?
2. If yes, what type?

Question types:
- background_question: Background, resume, education questions
- behavioral_question: Past experiences and specific situations
- situational_question: Hypothetical scenarios
- knowledge_question: Technical knowledge or system design
- general_question: General questions (strengths, weaknesses, motivation, etc.)
- probe_question: Follow-up questions probing deeper

Response as JSON:
{"is_question": bool, "question_type": "type_name", "confidence": "high|medium|low"}`

const analyzeSystemPromptFmt = `You are an expert interview analyst. Analyze the candidate's response using the %s framework.

%s

Provide a quality score (0-100) and identify 2-3 weak points.

Response as JSON:
{
  "quality_score": number,
  "strengths": [list of 2-3 strengths],
  "weak_points": [
    {"component": "name", "severity": "high|medium|low", "question": "follow-up question"}
  ],
  "suggestions": [list of 2-3 suggestions]
}`

const followupSystemPromptFmt = `You are an experienced HR interviewer conducting a behavioral interview.
Generate %d insightful follow-up questions that dig deeper into the candidate's weak areas.

Questions should be:
- Open-ended and conversational
- Specific to the actual content of the interview (use names, projects, details mentioned)
- Designed to elicit concrete examples and measurable results
- Professional and respectful
- Varied in focus (don't ask the same question three times)

IMPORTANT: Respond with ONLY a JSON array of strings, nothing else:
["question1", "question2", "question3"]`

// frameworkInstructions holds the evaluation rubric per framework.
var frameworkInstructions = map[string]string{
	FrameworkSTAR: `STAR Framework (Situation, Task, Action, Result):
- Situation: Context and background of the scenario
- Task: Specific responsibility or challenge
- Action: Concrete steps the candidate personally took
- Result: Measurable outcomes and impact

Evaluate on: Clarity of each component, specificity, measurable results, relevance`,

	FrameworkTechnical: `Technical Framework:
- Architecture: Overall system design and structure
- Implementation: Specific technical approaches and solutions
- Trade-offs: Alternative approaches and justifications
- Impact: Technical outcomes and performance metrics

Evaluate on: Technical depth, design decisions, problem-solving approach, impact`,

	FrameworkGeneral: `General Framework:
- Clarity: Answer is organized and easy to understand
- Completeness: Fully addresses the question
- Relevance: Content is directly related to the question
- Authenticity: Response feels genuine and well-thought-out

Evaluate on: Communication clarity, completeness, relevance, professionalism`,
}

func frameworkInstruction(framework string) string {
	if instr, ok := frameworkInstructions[framework]; ok {
		return instr
	}
	return frameworkInstructions[FrameworkGeneral]
}

func followupUserPrompt(context, weakArea string, count int) string {
	return fmt.Sprintf(`Based on this interview exchange:

%s

The main area that needs more depth: %s

Generate %d specific, varied follow-up questions that will help the candidate provide more detail.`, context, weakArea, count)
}
