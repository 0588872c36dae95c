package domain

const (
	basePoints      = 100
	pointsPerSecond = 5
)

// Score is the award rule: correct answers earn a base plus a speed bonus, wrong ones nothing.
func Score(correct bool, remainingSeconds int) int {
	if !correct || remainingSeconds <= 0 {
		return 0
	}
	if remainingSeconds > MaxTimerSeconds {
		remainingSeconds = MaxTimerSeconds
	}
	return basePoints + remainingSeconds*pointsPerSecond
}

// MaxScore is the best possible award for a question with the given timer.
func MaxScore(timerSeconds int) int {
	return Score(true, timerSeconds)
}

// ApplyAnswer validates a submission against the document and, when accepted, adds the
// award to the submitter's score only and records the answer. Rejections leave s untouched.
func (s *Session) ApplyAnswer(playerID string, questionIndex, selected, remainingSeconds int) (ScoreDelta, error) {
	question, ok := s.CurrentQuestion()
	if !ok {
		return ScoreDelta{}, ErrNotActive
	}
	if questionIndex != s.CurrentQuestionIndex {
		return ScoreDelta{}, ErrStaleQuestion
	}
	if remainingSeconds <= 0 {
		return ScoreDelta{}, ErrTimeUp
	}
	if selected < 0 || selected >= len(question.Answers) {
		return ScoreDelta{}, ErrInvalidAnswer
	}
	idx := s.participantIndex(playerID)
	if idx < 0 {
		return ScoreDelta{}, ErrParticipantNotFound
	}
	if s.hasAnswered(playerID, questionIndex) {
		return ScoreDelta{}, ErrAlreadyAnswered
	}

	correct := selected == question.CorrectAnswerIndex
	points := Score(correct, remainingSeconds)
	s.Participants[idx].Score += points
	s.Answers = append(s.Answers, AnswerRecord{
		PlayerID:            playerID,
		QuestionIndex:       questionIndex,
		SelectedAnswerIndex: selected,
		Correct:             correct,
		Awarded:             points,
	})

	return ScoreDelta{
		PlayerID:      playerID,
		QuestionIndex: questionIndex,
		Correct:       correct,
		Points:        points,
		TotalScore:    s.Participants[idx].Score,
		Recorded:      true,
	}, nil
}

// AnswerFor returns the recorded answer of playerID for a question.
func (s *Session) AnswerFor(playerID string, questionIndex int) (AnswerRecord, bool) {
	for _, record := range s.Answers {
		if record.PlayerID == playerID && record.QuestionIndex == questionIndex {
			return record, true
		}
	}
	return AnswerRecord{}, false
}

func (s *Session) hasAnswered(playerID string, questionIndex int) bool {
	_, ok := s.AnswerFor(playerID, questionIndex)
	return ok
}
