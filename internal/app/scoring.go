package app

import "quizdesk/internal/domain"

// Score grades an answer set against the authoritative quiz. A missing,
// mismatched, or out-of-range answer counts as incorrect, never as an error;
// answer keys that match no question are ignored. A quiz with zero questions
// scores 0 and passes only when the passing score is 0.
//
// Pure and deterministic: replaying it over a stored attempt's quiz snapshot
// and answers reproduces the stored score exactly.
func Score(quiz domain.Quiz, answers domain.AnswerSet) domain.AttemptResult {
	correct := 0
	for _, question := range quiz.Questions {
		if selected, ok := answers[question.ID]; ok && selected == question.CorrectAnswer {
			correct++
		}
	}

	total := len(quiz.Questions)
	score := 0.0
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}

	return domain.AttemptResult{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		Passed:         score >= float64(quiz.PassingScore),
	}
}
