package app

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"quizdesk/internal/domain"
)

// reportFanOut bounds how many per-quiz attempt loads run concurrently.
const reportFanOut = 8

// ReportService derives per-quiz, per-subject, and per-teacher statistics from
// the attempt store. Everything is recomputed on demand from authoritative
// state; concurrent identical requests are coalesced but nothing is cached.
type ReportService struct {
	quizzes  QuizRepository
	attempts AttemptRepository
	sf       singleflight.Group
}

func NewReportService(quizzes QuizRepository, attempts AttemptRepository) *ReportService {
	return &ReportService{quizzes: quizzes, attempts: attempts}
}

// QuizReport aggregates all attempts for one quiz. Zero attempts yield zeros
// across the board, never NaN.
func (s *ReportService) QuizReport(ctx context.Context, quizID string) (domain.QuizReport, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return domain.QuizReport{}, err
	}
	attempts, err := s.attempts.FindByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizReport{}, err
	}
	return aggregateQuiz(quiz, attempts), nil
}

// QuizReports aggregates every quiz. Attempt loads fan out concurrently;
// identical in-flight requests share one computation. The shared computation
// runs detached from the first caller's cancellation so one aborted request
// cannot fail the coalesced callers riding on it.
func (s *ReportService) QuizReports(ctx context.Context) ([]domain.QuizReport, error) {
	result, err, _ := s.sf.Do("quiz-reports", func() (interface{}, error) {
		return s.collectQuizReports(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuizReport), nil
}

// SubjectReports groups the per-quiz aggregates by subject.
func (s *ReportService) SubjectReports(ctx context.Context) ([]domain.SubjectReport, error) {
	reports, err := s.QuizReports(ctx)
	if err != nil {
		return nil, err
	}

	bySubject := make(map[string]*domain.SubjectReport)
	weights := make(map[string]rollup)
	for _, r := range reports {
		sr, ok := bySubject[r.Subject]
		if !ok {
			sr = &domain.SubjectReport{Subject: r.Subject}
			bySubject[r.Subject] = sr
		}
		sr.TotalQuizzes++
		sr.TotalAttempts += r.TotalAttempts
		w := weights[r.Subject]
		w.add(r)
		weights[r.Subject] = w
	}

	out := make([]domain.SubjectReport, 0, len(bySubject))
	for subject, sr := range bySubject {
		w := weights[subject]
		sr.AverageScore = w.averageScore()
		sr.PassRate = w.passRate()
		out = append(out, *sr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

// TeacherReports groups the per-quiz aggregates by the owning teacher.
func (s *ReportService) TeacherReports(ctx context.Context) ([]domain.TeacherReport, error) {
	reports, err := s.QuizReports(ctx)
	if err != nil {
		return nil, err
	}

	byTeacher := make(map[string]*domain.TeacherReport)
	weights := make(map[string]rollup)
	for _, r := range reports {
		tr, ok := byTeacher[r.Teacher]
		if !ok {
			tr = &domain.TeacherReport{Teacher: r.Teacher}
			byTeacher[r.Teacher] = tr
		}
		tr.TotalQuizzes++
		tr.TotalAttempts += r.TotalAttempts
		w := weights[r.Teacher]
		w.add(r)
		weights[r.Teacher] = w
	}

	out := make([]domain.TeacherReport, 0, len(byTeacher))
	for teacher, tr := range byTeacher {
		w := weights[teacher]
		tr.AverageScore = w.averageScore()
		tr.PassRate = w.passRate()
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Teacher < out[j].Teacher })
	return out, nil
}

func (s *ReportService) collectQuizReports(ctx context.Context) ([]domain.QuizReport, error) {
	quizzes, err := s.quizzes.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.QuizReport, len(quizzes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportFanOut)
	for i, quiz := range quizzes {
		i, quiz := i, quiz
		g.Go(func() error {
			attempts, err := s.attempts.FindByQuiz(gctx, quiz.ID)
			if err != nil {
				return err
			}
			reports[i] = aggregateQuiz(quiz, attempts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func aggregateQuiz(quiz domain.Quiz, attempts []domain.Attempt) domain.QuizReport {
	report := domain.QuizReport{
		QuizID:        quiz.ID,
		Title:         quiz.Title,
		Subject:       quiz.Subject,
		Teacher:       quiz.CreatedBy,
		TotalAttempts: len(attempts),
	}
	if len(attempts) == 0 {
		return report
	}

	sum := 0.0
	highest := attempts[0].Score
	lowest := attempts[0].Score
	passed := 0
	for _, attempt := range attempts {
		sum += attempt.Score
		if attempt.Score > highest {
			highest = attempt.Score
		}
		if attempt.Score < lowest {
			lowest = attempt.Score
		}
		if attempt.Score >= float64(quiz.PassingScore) {
			passed++
		}
	}
	report.AverageScore = sum / float64(len(attempts))
	report.HighestScore = highest
	report.LowestScore = lowest
	report.PassRate = float64(passed) / float64(len(attempts)) * 100
	return report
}

// rollup accumulates attempt-weighted score and pass totals so grouped
// averages weigh each attempt equally rather than each quiz.
type rollup struct {
	attempts  int
	scoreSum  float64
	passedSum float64
}

func (w *rollup) add(r domain.QuizReport) {
	w.attempts += r.TotalAttempts
	w.scoreSum += r.AverageScore * float64(r.TotalAttempts)
	w.passedSum += r.PassRate / 100 * float64(r.TotalAttempts)
}

func (w rollup) averageScore() float64 {
	if w.attempts == 0 {
		return 0
	}
	return w.scoreSum / float64(w.attempts)
}

func (w rollup) passRate() float64 {
	if w.attempts == 0 {
		return 0
	}
	return w.passedSum / float64(w.attempts) * 100
}
