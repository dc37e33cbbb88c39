package app

import (
	"time"

	"quizdesk/internal/domain"
)

// AttemptSession is the server-side countdown state for one in-progress
// attempt. It moves through three states: running while the deadline is ahead,
// expired once the deadline passes, and submitted when the session is removed
// from its store via Complete. At most one submission is triggered per
// session; when a manual submit races timer expiry, the attempt store's
// uniqueness constraint is the final arbiter.
type AttemptSession struct {
	QuizID    string           `json:"quizId"`
	StudentID string           `json:"studentId"`
	StartedAt time.Time        `json:"startedAt"`
	Deadline  time.Time        `json:"deadline"`
	Answers   domain.AnswerSet `json:"answers"`
}

// NewAttemptSession starts the countdown for a quiz. The deadline is the quiz
// duration from now, capped by the quiz's own deadline when one is set.
func NewAttemptSession(quiz domain.Quiz, studentID string, now time.Time) AttemptSession {
	deadline := now.Add(time.Duration(quiz.Duration) * time.Minute)
	if quiz.Deadline != nil && quiz.Deadline.Before(deadline) {
		deadline = *quiz.Deadline
	}
	return AttemptSession{
		QuizID:    quiz.ID,
		StudentID: studentID,
		StartedAt: now,
		Deadline:  deadline,
		Answers:   domain.AnswerSet{},
	}
}

// Remaining returns the whole seconds left on the countdown, never negative.
func (s AttemptSession) Remaining(now time.Time) int {
	remaining := s.Deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// Expired reports whether the deadline has passed.
func (s AttemptSession) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// TimeTaken returns the elapsed seconds since the session started, capped at
// the session's full span so an expiry-triggered submission never reports more
// time than the quiz allowed.
func (s AttemptSession) TimeTaken(now time.Time) int {
	if now.After(s.Deadline) {
		now = s.Deadline
	}
	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Second)
}
