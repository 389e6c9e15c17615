package extraction

import "fmt"

// workoutScanPrompt builds the shared extraction instruction used by all LLM
// providers. The framing names what kind of file the model is looking at so a
// video triggers a full-duration temporal scan rather than a static read.
func workoutScanPrompt(isVideo bool) string {
	fileDescription := "PDF workout summary"
	if isVideo {
		fileDescription = "screen recording of a workout app"
	}

	return fmt.Sprintf(`You are looking at a %s.
Extract all individual workout sets shown.
Important: If this is a video, watch the entire duration carefully as it may scroll through multiple dates or exercises.

For each set, provide:
- date: The date of the workout (in YYYY-MM-DD format). If multiple dates appear (e.g., Dec 09 and Dec 12), capture each set under its correct date.
- exercise: The name of the exercise.
- weight: The weight used (e.g., '10 lb', '50 kg'). If no weight is specified (bodyweight), use '0' or 'BW'.
- reps: The number of repetitions (integer). If a duration is given (e.g., '30 sec'), convert it to an integer rep count where possible, otherwise note it in the notes field.
- set_number: The sequential number of the set for that specific exercise (1, 2, 3...).
- notes: Any additional info like RPE, "Personal Best", or specific variations.

Return ONLY a JSON array of these objects.
Do not include any text before or after the JSON.
Do not use markdown code blocks.`, fileDescription)
}
