package realtime

// jobDescription is the working context the model uses when proposing
// follow-up questions.
const jobDescription = `**Job Title: Senior Software Engineer (AI/ML Focus)**
**Responsibilities:**
- Design, build, and maintain high-performance, reusable, and reliable code.
- Integrate third-party AI services into core product workflows.
- Optimize real-time audio processing pipelines for low latency.
- Collaborate with cross-functional teams to define, design, and ship new features.

**Requirements:**
- 5+ years of experience in software engineering.
- Experience with WebSocket APIs and real-time data streaming.
- Strong understanding of system design and scalable architecture.
- Bonus: Experience with WebRTC or Audio Processing.`

const sessionInstructions = `You are an expert technical interview copilot.
1. Transcribe the user's audio accurately.
2. After the user finishes an answer, IMMEDIATELY generate 3 strategic follow-up questions using the 'submit_interview_suggestions' tool.

CONTEXT (Job Description):
` + jobDescription + `

The 3 questions MUST follow this structure:
1. 'deep_dive': A specific follow-up based on the candidate's answer (probing details, STAR gaps, or technical logic).
2. 'jd_alignment': A question checking if they have specific skills/experience required for the role (based on the provided JD).
3. 'strategic': A broader question about system design, soft skills, or problem-solving.

3. Call 'submit_interview_suggestions' to submit these 3 questions.
4. Do NOT generate spoken audio responses, ONLY use the tool.`

// sessionConfig builds the one-time session.update payload: text modality,
// server-side turn detection, and the tool schema the model must use when
// proposing suggestions.
func sessionConfig() map[string]interface{} {
	return map[string]interface{}{
		"modalities":          []string{"text"},
		"instructions":        sessionInstructions,
		"voice":               "alloy",
		"input_audio_format":  "pcm16",
		"output_audio_format": "pcm16",
		"turn_detection": map[string]interface{}{
			"type":                "server_vad",
			"threshold":           0.5,
			"prefix_padding_ms":   300,
			"silence_duration_ms": 500,
		},
		"tools": []map[string]interface{}{
			{
				"type":        "function",
				"name":        "submit_interview_suggestions",
				"description": "Submit 3 strategic follow-up questions based on the candidate's answer.",
				"parameters": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"suggestions": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"type": map[string]interface{}{
										"type":        "string",
										"enum":        []string{"deep_dive", "jd_alignment", "strategic"},
										"description": "Category of the question",
									},
									"question": map[string]interface{}{
										"type":        "string",
										"description": "The actual question to ask the candidate.",
									},
									"reasoning": map[string]interface{}{
										"type":        "string",
										"description": "Why this question is important (brief).",
									},
								},
								"required": []string{"type", "question", "reasoning"},
							},
						},
					},
					"required": []string{"suggestions"},
				},
			},
		},
		"tool_choice": "auto",
	}
}
