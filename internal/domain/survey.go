package domain

import (
	"time"
	"unicode/utf8"
)

const (
	MinScore         = 1
	MaxScore         = 7
	MaxCommentLength = 255
)

// Survey is the post-delivery satisfaction record. At most one per order.
type Survey struct {
	ID             string
	OrderID        string
	OrderScore     int
	DelivererScore int
	Comment        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type SurveyPatch struct {
	OrderScore     Optional[int]
	DelivererScore Optional[int]
	Comment        Optional[string]
}

func (p SurveyPatch) Apply(s *Survey) {
	if p.OrderScore.Set {
		s.OrderScore = p.OrderScore.Value
	}
	if p.DelivererScore.Set {
		s.DelivererScore = p.DelivererScore.Value
	}
	if p.Comment.Set {
		s.Comment = p.Comment.Value
	}
}

// Validate checks scores and comment length.
func (s Survey) Validate() error {
	if !validScore(s.OrderScore) || !validScore(s.DelivererScore) {
		return ErrScoreOutOfRange
	}
	if utf8.RuneCountInString(s.Comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

func validScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
