package analysis

import "fmt"

func imagePrompt(caption string) string {
	return fmt.Sprintf(`You are a forensic image analyst. Analyze this crime scene description:

Image Description: %s

Provide:
1. List of objects detected
2. Potential evidence items
3. Any signs of violence or criminal activity
4. Environmental conditions
5. Safety concerns

Be specific and detailed in your analysis.`, caption)
}

func audioPrompt(transcript string) string {
	return fmt.Sprintf(`Analyze this audio transcription from a potential crime scene:
Transcription: %s

Provide:
1. Key points discussed
2. Emotional tone analysis
3. Any potential threats or concerning statements
4. Relevant context clues
5. Recommendations for law enforcement

Be specific and detailed in your analysis.`, transcript)
}

func textPrompt(text string) string {
	return fmt.Sprintf(`You are a forensic text analyst. Analyze this text from a potential crime scene or investigation:

Text: %s

Provide:
1. Key findings and observations
2. Potential red flags or warnings
3. Contextual analysis
4. Recommended actions
5. Priority level (Low/Medium/High)

Be thorough and specific in your analysis.`, text)
}
